package twiliowhatsapp

import (
	"context"
	"testing"
)

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewClient(); err == nil {
		t.Error("NewClient without credentials should fail")
	}
	if _, err := NewClient(WithAccountSID("sid"), WithAuthToken("token")); err == nil {
		t.Error("NewClient without from number should fail")
	}
	if _, err := NewClient(WithAccountSID("sid"), WithAuthToken("token"), WithFromWhats("whatsapp:+5511999990000")); err != nil {
		t.Errorf("NewClient with full options failed: %v", err)
	}
}

func TestMockClientRecordsMessages(t *testing.T) {
	m := NewMockClient()
	if err := m.SendMessage(context.Background(), "+5511999990000", "Olá!"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if len(m.SentMessages) != 1 {
		t.Fatalf("SentMessages length = %d, want 1", len(m.SentMessages))
	}
	if m.SentMessages[0].To != "+5511999990000" || m.SentMessages[0].Body != "Olá!" {
		t.Errorf("recorded message = %+v", m.SentMessages[0])
	}
}

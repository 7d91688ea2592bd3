package messaging

import (
	"context"
	"strings"
	"testing"

	"github.com/imobia/leadpipe/internal/funnel"
	"github.com/imobia/leadpipe/internal/models"
	"github.com/imobia/leadpipe/internal/store"
)

// mockService is an in-memory Service recording sent messages.
type mockService struct {
	sent      []sentMessage
	receipts  chan models.Receipt
	responses chan models.Response
}

type sentMessage struct {
	to   string
	body string
}

func newMockService() *mockService {
	return &mockService{
		receipts:  make(chan models.Receipt, DefaultChannelBufferSize),
		responses: make(chan models.Response, DefaultChannelBufferSize),
	}
}

func (m *mockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizeRecipient(recipient)
}

func (m *mockService) SendMessage(ctx context.Context, to string, body string) error {
	m.sent = append(m.sent, sentMessage{to: to, body: body})
	return nil
}

func (m *mockService) Start(ctx context.Context) error { return nil }

func (m *mockService) Stop() error { return nil }

func (m *mockService) Receipts() <-chan models.Receipt { return m.receipts }

func (m *mockService) Responses() <-chan models.Response { return m.responses }

func newTestHandler() (*LeadHandler, *store.InMemoryStore, *mockService) {
	st := store.NewInMemoryStore()
	svc := newMockService()
	return NewLeadHandler(st, svc, nil, "acme"), st, svc
}

func deliver(t *testing.T, h *LeadHandler, from, body string) {
	t.Helper()
	if err := h.ProcessIncomingMessage(context.Background(), models.Response{From: from, Body: body, Time: 1700000000}); err != nil {
		t.Fatalf("ProcessIncomingMessage(%q) failed: %v", body, err)
	}
}

func leadByPhone(t *testing.T, st *store.InMemoryStore, phone string) *models.Lead {
	t.Helper()
	lead, err := st.GetLeadByPhone("acme", phone)
	if err != nil {
		t.Fatalf("GetLeadByPhone failed: %v", err)
	}
	if lead == nil {
		t.Fatal("lead not found")
	}
	return lead
}

func TestFirstContactCreatesLeadAndSendsWelcome(t *testing.T) {
	h, st, svc := newTestHandler()

	deliver(t, h, "+5511999990000", "Oi, tudo bem?")

	lead := leadByPhone(t, st, "5511999990000")
	if lead.Stage != funnel.StageDataCollection {
		t.Errorf("new lead stage = %q, want %q", lead.Stage, funnel.StageDataCollection)
	}
	if len(svc.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(svc.sent))
	}
	if !strings.Contains(svc.sent[0].body, "assistente digital") {
		t.Errorf("welcome message missing greeting: %q", svc.sent[0].body)
	}

	msgs, _ := st.GetMessages(lead.ID)
	if len(msgs) != 2 {
		t.Errorf("stored %d messages, want incoming + outgoing", len(msgs))
	}
}

func TestHumanRequestForcesHandoff(t *testing.T) {
	h, st, svc := newTestHandler()

	deliver(t, h, "+5511999990000", "Oi")
	deliver(t, h, "+5511999990000", "quero falar com um corretor")

	lead := leadByPhone(t, st, "5511999990000")
	if lead.Stage != funnel.StageHumanHandoff {
		t.Errorf("stage = %q, want %q", lead.Stage, funnel.StageHumanHandoff)
	}
	last := svc.sent[len(svc.sent)-1]
	if last.body != funnel.StageMessage(funnel.StageHumanHandoff) {
		t.Errorf("handoff reply = %q", last.body)
	}

	// Handoff is absorbing: further messages never move the lead back.
	deliver(t, h, "+5511999990000", "quero algo entre 300 mil e 500 mil no centro com 3 quartos")
	lead = leadByPhone(t, st, "5511999990000")
	if lead.Stage != funnel.StageHumanHandoff {
		t.Errorf("stage after handoff = %q, want %q", lead.Stage, funnel.StageHumanHandoff)
	}
}

func TestQualificationFlowReachesPresentation(t *testing.T) {
	h, st, svc := newTestHandler()
	if err := st.SaveProperty(models.Property{
		ID: "p1", CompanyID: "acme", Title: "Apartamento Centro",
		SalePrice: 420000, Bedrooms: 3, Neighborhood: "Centro", City: "Curitiba",
		Active: true, Published: true, Purpose: "venda",
	}); err != nil {
		t.Fatalf("SaveProperty failed: %v", err)
	}

	deliver(t, h, "+5511999990000", "Oi")
	deliver(t, h, "+5511999990000", "procuro algo entre 300 mil e 500 mil com 3 quartos")

	lead := leadByPhone(t, st, "5511999990000")
	if lead.Stage != funnel.StageMatching {
		t.Fatalf("stage after qualification = %q, want %q", lead.Stage, funnel.StageMatching)
	}
	if lead.BudgetMin == nil || *lead.BudgetMin != 300000 {
		t.Errorf("BudgetMin = %v, want 300000", lead.BudgetMin)
	}
	if lead.Rooms == nil || *lead.Rooms != 3 {
		t.Errorf("Rooms = %v, want 3", lead.Rooms)
	}

	// Desired location is filled in externally (CRM/agent); the interpreter
	// does not guess it from free text.
	location := "Centro"
	lead.Location = &location
	if err := st.SaveLead(*lead); err != nil {
		t.Fatalf("SaveLead failed: %v", err)
	}

	// Next message evaluates the matching stage and presents the property.
	deliver(t, h, "+5511999990000", "ok")
	lead = leadByPhone(t, st, "5511999990000")
	if lead.Stage != funnel.StagePresentation {
		t.Fatalf("stage after matching = %q, want %q", lead.Stage, funnel.StagePresentation)
	}
	last := svc.sent[len(svc.sent)-1]
	if !strings.Contains(last.body, "Apartamento Centro") {
		t.Errorf("presentation reply missing property card: %q", last.body)
	}
}

func TestNoMatchFlow(t *testing.T) {
	h, st, svc := newTestHandler()
	// No properties in the portfolio at all.

	deliver(t, h, "+5511999990000", "Oi")
	deliver(t, h, "+5511999990000", "procuro algo até 500 mil no Centro com 3 quartos")
	deliver(t, h, "+5511999990000", "e então?")

	lead := leadByPhone(t, st, "5511999990000")
	if lead.Stage != funnel.StageNoMatch {
		t.Fatalf("stage = %q, want %q", lead.Stage, funnel.StageNoMatch)
	}
	last := svc.sent[len(svc.sent)-1]
	if !strings.Contains(last.body, "não encontrei") {
		t.Errorf("no-match reply = %q", last.body)
	}

	// An affirmative answer moves the lead into refinement.
	deliver(t, h, "+5511999990000", "sim, podemos tentar")
	lead = leadByPhone(t, st, "5511999990000")
	if lead.Stage != funnel.StageRefinement {
		t.Errorf("stage after affirmative = %q, want %q", lead.Stage, funnel.StageRefinement)
	}
}

func TestStageStableWhenNoRuleFires(t *testing.T) {
	h, st, svc := newTestHandler()

	// Manual-only stages have no progression rule; an ordinary message must
	// leave the stored stage untouched.
	for _, stage := range []string{funnel.StageInterest, funnel.StageNegotiation, funnel.StageHumanHandoff} {
		lead := models.Lead{ID: "l-stable", CompanyID: "acme", Phone: "5511999990000", Stage: stage}
		if err := st.SaveLead(lead); err != nil {
			t.Fatalf("SaveLead failed: %v", err)
		}

		deliver(t, h, "+5511999990000", "obrigado")

		got := leadByPhone(t, st, "5511999990000")
		if got.Stage != stage {
			t.Errorf("stage after ordinary message = %q, want %q", got.Stage, stage)
		}
		last := svc.sent[len(svc.sent)-1]
		if last.body != funnel.StageMessage(stage) {
			t.Errorf("reply in %q = %q, want stage message %q", stage, last.body, funnel.StageMessage(stage))
		}
	}
}

func TestInterestSchedulingRequest(t *testing.T) {
	h, st, _ := newTestHandler()

	lead := models.Lead{ID: "l1", CompanyID: "acme", Phone: "5511999990000", Stage: funnel.StageInterest}
	if err := st.SaveLead(lead); err != nil {
		t.Fatalf("SaveLead failed: %v", err)
	}

	deliver(t, h, "+5511999990000", "quando posso visitar o apartamento?")

	got := leadByPhone(t, st, "5511999990000")
	if got.Stage != funnel.StageScheduling {
		t.Errorf("stage = %q, want %q", got.Stage, funnel.StageScheduling)
	}
}

func TestAudioMessageStoredWithKind(t *testing.T) {
	h, st, _ := newTestHandler()

	if err := h.ProcessIncomingMessage(context.Background(), models.Response{
		From:      "+5511999990000",
		MediaURL:  "https://example.com/voice.ogg",
		MediaType: "audio/ogg",
		Time:      1700000000,
	}); err != nil {
		t.Fatalf("ProcessIncomingMessage failed: %v", err)
	}

	lead := leadByPhone(t, st, "5511999990000")
	msgs, _ := st.GetMessages(lead.ID)
	if len(msgs) == 0 {
		t.Fatal("no messages stored")
	}
	if msgs[0].Kind != models.MessageKindAudio {
		t.Errorf("message kind = %q, want audio", msgs[0].Kind)
	}
	// No GenAI client configured, so there is no transcription.
	if msgs[0].Transcription != "" {
		t.Errorf("unexpected transcription %q", msgs[0].Transcription)
	}
}

func TestInvalidSenderRejected(t *testing.T) {
	h, _, _ := newTestHandler()
	if err := h.ProcessIncomingMessage(context.Background(), models.Response{From: "abc", Body: "oi"}); err == nil {
		t.Error("expected error for sender without digits")
	}
}

func TestRankMatchesOrdersByScore(t *testing.T) {
	st := store.NewInMemoryStore()
	for _, p := range []models.Property{
		{ID: "far", CompanyID: "acme", SalePrice: 490000, Bedrooms: 3, Neighborhood: "Centro", City: "Curitiba", Active: true, Published: true, Purpose: "venda"},
		{ID: "mid", CompanyID: "acme", SalePrice: 400000, Bedrooms: 3, Neighborhood: "Centro", City: "Curitiba", Active: true, Published: true, Purpose: "venda"},
	} {
		if err := st.SaveProperty(p); err != nil {
			t.Fatalf("SaveProperty failed: %v", err)
		}
	}
	budgetMin, budgetMax := 300000.0, 500000.0
	rooms := 3
	location := "Centro"
	lead := &models.Lead{ID: "l1", CompanyID: "acme", BudgetMin: &budgetMin, BudgetMax: &budgetMax, Rooms: &rooms, Location: &location}

	matches, err := RankMatches(st, lead)
	if err != nil {
		t.Fatalf("RankMatches failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("RankMatches returned %d, want 2", len(matches))
	}
	if matches[0].Property.ID != "mid" {
		t.Errorf("best match = %q, want mid (closest to budget midpoint)", matches[0].Property.ID)
	}
	if matches[0].Score < matches[1].Score {
		t.Error("matches not sorted best-first")
	}
}

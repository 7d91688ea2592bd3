package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/imobia/leadpipe/internal/funnel"
	"github.com/imobia/leadpipe/internal/messaging"
	"github.com/imobia/leadpipe/internal/models"
	"github.com/imobia/leadpipe/internal/store"
)

type stubService struct {
	sent      []string
	receipts  chan models.Receipt
	responses chan models.Response
}

func newStubService() *stubService {
	return &stubService{
		receipts:  make(chan models.Receipt, messaging.DefaultChannelBufferSize),
		responses: make(chan models.Response, messaging.DefaultChannelBufferSize),
	}
}

func (s *stubService) ValidateAndCanonicalizeRecipient(r string) (string, error) { return r, nil }

func (s *stubService) SendMessage(ctx context.Context, to, body string) error {
	s.sent = append(s.sent, to)
	return nil
}

func (s *stubService) Start(ctx context.Context) error { return nil }

func (s *stubService) Stop() error { return nil }

func (s *stubService) Receipts() <-chan models.Receipt { return s.receipts }

func (s *stubService) Responses() <-chan models.Response { return s.responses }

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.AddJob("* * * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
	if err := s.AddJob("not a cron expr", func() {}); err == nil {
		t.Error("Expected error for invalid cron expression")
	}
}

func TestFollowUpStaleLeads(t *testing.T) {
	st := store.NewInMemoryStore()
	svc := newStubService()

	stale := models.Lead{
		ID: "stale", CompanyID: "acme", Phone: "5511999990001",
		Stage: funnel.StageAwaitingInfo, UpdatedAt: time.Now().Add(-48 * time.Hour),
	}
	fresh := models.Lead{
		ID: "fresh", CompanyID: "acme", Phone: "5511999990002",
		Stage: funnel.StageAwaitingInfo, UpdatedAt: time.Now(),
	}
	active := models.Lead{
		ID: "active", CompanyID: "acme", Phone: "5511999990003",
		Stage: funnel.StageDataCollection, UpdatedAt: time.Now().Add(-48 * time.Hour),
	}
	for _, l := range []models.Lead{stale, fresh, active} {
		if err := st.SaveLead(l); err != nil {
			t.Fatalf("SaveLead failed: %v", err)
		}
	}

	FollowUpStaleLeads(st, svc, "acme")()

	if len(svc.sent) != 1 || svc.sent[0] != "5511999990001" {
		t.Fatalf("follow-up sent to %v, want only the stale awaiting-info lead", svc.sent)
	}
	msgs, _ := st.GetMessages("stale")
	if len(msgs) != 1 || msgs[0].Direction != models.DirectionOutgoing {
		t.Errorf("follow-up not recorded as outgoing message: %+v", msgs)
	}
}

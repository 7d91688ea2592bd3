// Package scheduler provides cron-based background jobs for leadpipe.
//
// Its main job nudges leads that stalled during qualification so the funnel
// does not silently lose them.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/imobia/leadpipe/internal/funnel"
	"github.com/imobia/leadpipe/internal/messaging"
	"github.com/imobia/leadpipe/internal/models"
	"github.com/imobia/leadpipe/internal/store"
	"github.com/robfig/cron/v3"
)

// DefaultFollowUpExpr runs the stale-lead follow-up every day at 10:00.
const DefaultFollowUpExpr = "0 10 * * *"

// staleAfter is how long a lead may sit in the awaiting-info stage before a
// follow-up message is sent.
const staleAfter = 24 * time.Hour

// followUpMessage is the nudge sent to stalled leads.
const followUpMessage = "Oi! Ainda está procurando um imóvel? Se quiser, me conta o seu orçamento e a região de interesse que eu sigo com a busca. 😊"

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler using the standard 5-field
// expression format, with panic recovery on jobs.
func NewScheduler() *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// FollowUpStaleLeads returns a job that messages every lead of the company
// that has been sitting in the awaiting-info stage for longer than 24 hours.
// The nudge is recorded as an outgoing message so the next inbound reply can
// move the lead back into data collection.
func FollowUpStaleLeads(st store.Store, svc messaging.Service, companyID string) func() {
	return func() {
		slog.Debug("scheduler: running stale-lead follow-up", "company_id", companyID)
		leads, err := st.ListLeads(companyID)
		if err != nil {
			slog.Error("scheduler: failed to list leads for follow-up", "error", err)
			return
		}

		ctx := context.Background()
		cutoff := time.Now().Add(-staleAfter)
		for _, lead := range leads {
			if lead.Stage != funnel.StageAwaitingInfo || lead.UpdatedAt.After(cutoff) {
				continue
			}
			if err := svc.SendMessage(ctx, lead.Phone, followUpMessage); err != nil {
				slog.Error("scheduler: follow-up send failed", "error", err, "lead_id", lead.ID)
				continue
			}
			out := models.Message{
				ID:        uuid.New().String(),
				LeadID:    lead.ID,
				CompanyID: lead.CompanyID,
				Direction: models.DirectionOutgoing,
				Kind:      models.MessageKindText,
				Content:   followUpMessage,
				Timestamp: time.Now(),
			}
			if err := st.AddMessage(out); err != nil {
				slog.Error("scheduler: failed to record follow-up message", "error", err, "lead_id", lead.ID)
			}
			slog.Info("scheduler: follow-up sent", "lead_id", lead.ID)
		}
	}
}

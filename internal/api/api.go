// Package api provides the HTTP surface of leadpipe.
//
// It exposes RESTful endpoints for the funnel stage catalog, lead inspection
// and manual stage moves, property matching, and the inbound message webhook.
// Handlers delegate all pipeline decisions to the funnel, conversation and
// messaging packages.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/imobia/leadpipe/internal/messaging"
	"github.com/imobia/leadpipe/internal/scheduler"
	"github.com/imobia/leadpipe/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the HTTP listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server wires the HTTP handlers to their collaborators.
type Server struct {
	st         store.Store
	msgService messaging.Service
	handler    *messaging.LeadHandler
	sched      *scheduler.Scheduler
	companyID  string

	httpServer *http.Server
}

// NewServer creates an API server over the given collaborators.
func NewServer(msgService messaging.Service, sched *scheduler.Scheduler, st store.Store, handler *messaging.LeadHandler, companyID string) *Server {
	return &Server{
		st:         st,
		msgService: msgService,
		handler:    handler,
		sched:      sched,
		companyID:  companyID,
	}
}

// Handler builds the route table. Exposed so tests can drive the server
// through httptest without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stages", s.stagesHandler)

	mux.HandleFunc("GET /leads", s.listLeadsHandler)
	mux.HandleFunc("POST /leads", s.createLeadHandler)
	mux.HandleFunc("GET /leads/{id}", s.getLeadHandler)
	mux.HandleFunc("GET /leads/{id}/messages", s.leadMessagesHandler)
	mux.HandleFunc("GET /leads/{id}/matches", s.leadMatchesHandler)
	mux.HandleFunc("POST /leads/{id}/stage", s.updateLeadStageHandler)

	mux.HandleFunc("GET /properties", s.listPropertiesHandler)
	mux.HandleFunc("POST /properties", s.createPropertyHandler)

	mux.HandleFunc("POST /webhook/message", s.inboundMessageHandler)

	// The Twilio transport delivers inbound traffic through its own webhook.
	if twilioSvc, ok := s.msgService.(*messaging.TwilioService); ok {
		mux.HandleFunc("POST /webhook/twilio", twilioSvc.WebhookHandler)
		slog.Debug("Server.Handler: Twilio webhook route registered")
	}

	return mux
}

// Run starts the HTTP server and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context, opts ...Option) error {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", cfg.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

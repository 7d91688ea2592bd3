package messaging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/imobia/leadpipe/internal/conversation"
	"github.com/imobia/leadpipe/internal/funnel"
	"github.com/imobia/leadpipe/internal/genai"
	"github.com/imobia/leadpipe/internal/models"
	"github.com/imobia/leadpipe/internal/store"
)

// maxPresentedProperties caps how many property cards are sent when a lead
// enters the presentation stage.
const maxPresentedProperties = 3

// LeadHandler consumes inbound responses from a messaging Service, runs the
// conversation interpreter and the funnel rules over each message, persists
// the results and replies through the same service.
//
// Messages for the same lead are processed one at a time; a per-phone mutex
// serializes concurrent deliveries.
type LeadHandler struct {
	st        store.Store
	service   Service
	ai        genai.ClientInterface // nil disables generated replies and transcription
	companyID string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLeadHandler creates a LeadHandler. The GenAI client may be nil, in which
// case replies fall back to the stage message templates and audio messages
// are stored without transcription.
func NewLeadHandler(st store.Store, service Service, ai genai.ClientInterface, companyID string) *LeadHandler {
	return &LeadHandler{
		st:        st,
		service:   service,
		ai:        ai,
		companyID: companyID,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Start consumes the service's response channel until the context is
// cancelled or the channel closes. Responses are processed one at a time in
// arrival order, so channel-delivered messages from the same lead keep their
// FIFO order; the phone mutex guards against concurrent webhook deliveries.
func (h *LeadHandler) Start(ctx context.Context) {
	slog.Debug("LeadHandler.Start: consuming responses")
	go func() {
		for {
			select {
			case <-ctx.Done():
				slog.Debug("LeadHandler.Start: context cancelled")
				return
			case resp, ok := <-h.service.Responses():
				if !ok {
					slog.Debug("LeadHandler.Start: responses channel closed")
					return
				}
				if err := h.ProcessIncomingMessage(ctx, resp); err != nil {
					slog.Error("LeadHandler: failed to process incoming message", "error", err, "from", resp.From)
				}
			}
		}
	}()
}

// phoneLock returns the mutex serializing work for one phone number.
func (h *LeadHandler) phoneLock(phone string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	if l, ok := h.locks[phone]; ok {
		return l
	}
	l := &sync.Mutex{}
	h.locks[phone] = l
	return l
}

// ProcessIncomingMessage runs the full pipeline for one inbound message:
// find-or-create the lead, persist the message, check for a human-handoff
// request, extract qualification facts, evaluate the stage rules and reply.
func (h *LeadHandler) ProcessIncomingMessage(ctx context.Context, resp models.Response) error {
	phone, err := h.service.ValidateAndCanonicalizeRecipient(resp.From)
	if err != nil {
		return fmt.Errorf("invalid sender %q: %w", resp.From, err)
	}

	lock := h.phoneLock(phone)
	lock.Lock()
	defer lock.Unlock()

	lead, err := h.st.GetLeadByPhone(h.companyID, phone)
	if err != nil {
		return fmt.Errorf("failed to look up lead: %w", err)
	}
	isNewLead := lead == nil
	if isNewLead {
		now := time.Now()
		lead = &models.Lead{
			ID:        uuid.New().String(),
			CompanyID: h.companyID,
			Phone:     phone,
			Stage:     funnel.StageWelcome,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := h.st.SaveLead(*lead); err != nil {
			return fmt.Errorf("failed to create lead: %w", err)
		}
		slog.Info("LeadHandler: new lead created", "lead_id", lead.ID, "phone", phone)
	}

	msg := models.Message{
		ID:        uuid.New().String(),
		LeadID:    lead.ID,
		CompanyID: h.companyID,
		Direction: models.DirectionIncoming,
		Kind:      conversation.DetectMessageType(resp.MediaURL, resp.MediaType),
		Content:   resp.Body,
		MediaURL:  resp.MediaURL,
		MediaType: resp.MediaType,
		Timestamp: time.Unix(resp.Time, 0),
	}
	if msg.Kind == models.MessageKindAudio {
		msg.Transcription = h.transcribe(ctx, resp)
	}
	if err := h.st.AddMessage(msg); err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}

	text := msg.Text()

	// Explicit requests for a person short-circuit everything else.
	if funnel.DetectHumanRequestKeywords(text) {
		slog.Info("LeadHandler: human handoff requested", "lead_id", lead.ID, "stage", lead.Stage)
		lead.Stage = funnel.StageHumanHandoff
		lead.UpdatedAt = time.Now()
		if err := h.st.SaveLead(*lead); err != nil {
			return fmt.Errorf("failed to save lead: %w", err)
		}
		return h.reply(ctx, lead, funnel.StageMessage(funnel.StageHumanHandoff))
	}

	update := conversation.ExtractFacts(text)
	if !update.IsEmpty() {
		slog.Debug("LeadHandler: facts extracted", "lead_id", lead.ID)
		update.Apply(lead)
	}

	messageCount, err := h.st.CountMessages(lead.ID)
	if err != nil {
		return fmt.Errorf("failed to count messages: %w", err)
	}

	var matched []models.Property
	if conversation.HasEnoughDataForMatching(lead) {
		matches, err := RankMatches(h.st, lead)
		if err != nil {
			return fmt.Errorf("failed to match properties: %w", err)
		}
		for _, m := range matches {
			matched = append(matched, m.Property)
		}
	}

	// CalculateNextStage returns "" when no rule exists or none fired; only
	// then do the conversational heuristics get a chance, and a lead with no
	// proposal from either stays exactly where it is.
	next := funnel.CalculateNextStage(lead.Stage, lead, &msg, messageCount, matched)
	if next == "" {
		if proposed := conversation.DetectStageProgression(lead.Stage, lead, &msg); proposed != lead.Stage && funnel.IsValidTransition(lead.Stage, proposed) {
			next = proposed
		}
	}
	if next == "" {
		next = lead.Stage
	}

	body := h.composeReply(ctx, lead, next, matched, isNewLead)

	stageChanged := next != lead.Stage
	lead.Stage = next
	lead.LastMessageCount = messageCount
	lead.UpdatedAt = time.Now()
	if err := h.st.SaveLead(*lead); err != nil {
		return fmt.Errorf("failed to save lead: %w", err)
	}
	if stageChanged {
		slog.Info("LeadHandler: lead advanced", "lead_id", lead.ID, "stage", next)
	}

	return h.reply(ctx, lead, body)
}

// composeReply picks the outbound message for the evaluated stage. Stage
// transitions use the stage templates (property previews for presentation,
// the criteria recap for no-match); a stationary conversation falls through
// to the GenAI client when one is configured.
func (h *LeadHandler) composeReply(ctx context.Context, lead *models.Lead, next string, matched []models.Property, isNewLead bool) string {
	if isNewLead {
		return conversation.BuildGenericWelcomeMessage(conversation.ExtractPreferredName(lead.Name), time.Now().Hour())
	}

	if next != lead.Stage {
		switch next {
		case funnel.StagePresentation:
			var parts []string
			for i, p := range matched {
				if i == maxPresentedProperties {
					break
				}
				parts = append(parts, conversation.BuildPropertyPreviewMessage(p))
			}
			return strings.Join(parts, "\n\n")
		case funnel.StageNoMatch:
			return conversation.BuildNoMatchMessage(lead)
		default:
			return funnel.StageMessage(next)
		}
	}

	if h.ai != nil {
		history, err := h.st.GetMessages(lead.ID)
		if err != nil {
			slog.Error("LeadHandler: failed to load history for reply", "error", err, "lead_id", lead.ID)
		} else {
			last := ""
			if len(history) > 0 {
				last = history[len(history)-1].Text()
			}
			reply, err := h.ai.GenerateReply(ctx, *lead, history, last)
			if err == nil && reply != "" {
				return reply
			}
			slog.Warn("LeadHandler: generated reply unavailable, using stage message", "error", err, "lead_id", lead.ID)
		}
	}
	return funnel.StageMessage(lead.Stage)
}

// reply sends the body to the lead and records it as an outgoing message.
// An empty body (e.g. presentation with nothing to show) sends nothing.
func (h *LeadHandler) reply(ctx context.Context, lead *models.Lead, body string) error {
	if body == "" {
		return nil
	}
	if err := h.service.SendMessage(ctx, lead.Phone, body); err != nil {
		return fmt.Errorf("failed to send reply to %s: %w", lead.Phone, err)
	}
	out := models.Message{
		ID:        uuid.New().String(),
		LeadID:    lead.ID,
		CompanyID: lead.CompanyID,
		Direction: models.DirectionOutgoing,
		Kind:      models.MessageKindText,
		Content:   body,
		Timestamp: time.Now(),
	}
	if err := h.st.AddMessage(out); err != nil {
		return fmt.Errorf("failed to store outgoing message: %w", err)
	}
	return nil
}

// transcribe fetches an audio payload and converts it to text. Failures are
// logged and swallowed; the message is then processed without a transcript.
func (h *LeadHandler) transcribe(ctx context.Context, resp models.Response) string {
	if h.ai == nil || resp.MediaURL == "" {
		return ""
	}
	data, err := fetchMedia(ctx, resp.MediaURL)
	if err != nil {
		slog.Warn("LeadHandler: failed to fetch audio payload", "error", err, "from", resp.From)
		return ""
	}
	text, err := h.ai.TranscribeAudio(ctx, bytes.NewReader(data), "voice-message.ogg")
	if err != nil {
		slog.Warn("LeadHandler: transcription failed", "error", err, "from", resp.From)
		return ""
	}
	return text
}

// fetchMedia downloads a media payload over HTTP.
func fetchMedia(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media fetch returned status %d", res.StatusCode)
	}
	return io.ReadAll(res.Body)
}

// RankMatches queries the property portfolio with the lead's criteria and
// returns the compatible listings scored and sorted best-first.
func RankMatches(st store.Store, lead *models.Lead) ([]models.PropertyMatch, error) {
	props, err := st.QueryProperties(conversation.BuildPropertyMatchQuery(lead))
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	matches := make([]models.PropertyMatch, 0, len(props))
	for _, p := range props {
		matches = append(matches, models.PropertyMatch{
			Property: p,
			Score:    conversation.CalculateMatchScore(p, lead),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches, nil
}

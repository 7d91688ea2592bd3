package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/imobia/leadpipe/internal/conversation"
	"github.com/imobia/leadpipe/internal/funnel"
	"github.com/imobia/leadpipe/internal/messaging"
	"github.com/imobia/leadpipe/internal/models"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}

// stagesHandler returns the funnel stage catalog in presentation order.
func (s *Server) stagesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(funnel.AllStages()))
}

func (s *Server) listLeadsHandler(w http.ResponseWriter, r *http.Request) {
	leads, err := s.st.ListLeads(s.companyID)
	if err != nil {
		slog.Error("Server.listLeadsHandler: failed to list leads", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list leads"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(leads))
}

// createLeadRequest is the payload for manual lead enrollment.
type createLeadRequest struct {
	Phone string `json:"telefone"`
	Name  string `json:"nome"`
}

func (s *Server) createLeadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req createLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createLeadHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	phone, err := s.msgService.ValidateAndCanonicalizeRecipient(req.Phone)
	if err != nil {
		slog.Warn("Server.createLeadHandler: recipient validation failed", "error", err, "phone", req.Phone)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if len(req.Name) > models.MaxLeadNameLength {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrLeadNameTooLong.Error()))
		return
	}

	existing, err := s.st.GetLeadByPhone(s.companyID, phone)
	if err != nil {
		slog.Error("Server.createLeadHandler: lookup failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to check existing lead"))
		return
	}
	if existing != nil {
		writeJSONResponse(w, http.StatusConflict, models.Error("Lead with this phone number already exists"))
		return
	}

	now := time.Now()
	lead := models.Lead{
		ID:        uuid.New().String(),
		CompanyID: s.companyID,
		Phone:     phone,
		Name:      req.Name,
		Stage:     funnel.StageWelcome,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.st.SaveLead(lead); err != nil {
		slog.Error("Server.createLeadHandler: save failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create lead"))
		return
	}

	slog.Info("Server.createLeadHandler: lead created", "lead_id", lead.ID, "phone", phone)
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Lead created successfully", lead))
}

// loadLead fetches the path lead or writes the 404 response and returns nil.
func (s *Server) loadLead(w http.ResponseWriter, r *http.Request) *models.Lead {
	id := r.PathValue("id")
	lead, err := s.st.GetLead(id)
	if err != nil {
		slog.Error("Server.loadLead: lookup failed", "error", err, "lead_id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load lead"))
		return nil
	}
	if lead == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error(models.ErrLeadNotFound.Error()))
		return nil
	}
	return lead
}

func (s *Server) getLeadHandler(w http.ResponseWriter, r *http.Request) {
	lead := s.loadLead(w, r)
	if lead == nil {
		return
	}
	result := map[string]interface{}{
		"lead":       lead,
		"stage_info": funnel.StageInfo(lead.Stage),
		"progress":   funnel.FunnelProgress(lead.Stage),
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) leadMessagesHandler(w http.ResponseWriter, r *http.Request) {
	lead := s.loadLead(w, r)
	if lead == nil {
		return
	}
	msgs, err := s.st.GetMessages(lead.ID)
	if err != nil {
		slog.Error("Server.leadMessagesHandler: failed to load messages", "error", err, "lead_id", lead.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load messages"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(msgs))
}

func (s *Server) leadMatchesHandler(w http.ResponseWriter, r *http.Request) {
	lead := s.loadLead(w, r)
	if lead == nil {
		return
	}
	if !conversation.HasEnoughDataForMatching(lead) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Lead is missing budget, location or room count"))
		return
	}
	matches, err := messaging.RankMatches(s.st, lead)
	if err != nil {
		slog.Error("Server.leadMatchesHandler: matching failed", "error", err, "lead_id", lead.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to match properties"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(matches))
}

// updateStageRequest is the payload for a manual stage move.
type updateStageRequest struct {
	Stage string `json:"etapa"`
}

func (s *Server) updateLeadStageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	lead := s.loadLead(w, r)
	if lead == nil {
		return
	}

	var req updateStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.updateLeadStageHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if funnel.StageInfo(req.Stage) == nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrUnknownStage.Error()))
		return
	}
	if !funnel.IsValidTransition(lead.Stage, req.Stage) {
		slog.Warn("Server.updateLeadStageHandler: illegal transition rejected",
			"lead_id", lead.ID, "from", lead.Stage, "to", req.Stage)
		writeJSONResponse(w, http.StatusConflict, models.Error(models.ErrIllegalTransition.Error()))
		return
	}

	lead.Stage = req.Stage
	lead.UpdatedAt = time.Now()
	if err := s.st.SaveLead(*lead); err != nil {
		slog.Error("Server.updateLeadStageHandler: save failed", "error", err, "lead_id", lead.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save lead"))
		return
	}

	slog.Info("Server.updateLeadStageHandler: stage updated", "lead_id", lead.ID, "stage", req.Stage)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Stage updated successfully", lead))
}

func (s *Server) listPropertiesHandler(w http.ResponseWriter, r *http.Request) {
	props, err := s.st.QueryProperties(models.PropertyFilter{CompanyID: s.companyID})
	if err != nil {
		slog.Error("Server.listPropertiesHandler: query failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list properties"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(props))
}

func (s *Server) createPropertyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var p models.Property
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		slog.Warn("Server.createPropertyHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CompanyID = s.companyID
	if p.Purpose == "" {
		p.Purpose = "venda"
	}
	if err := s.st.SaveProperty(p); err != nil {
		slog.Error("Server.createPropertyHandler: save failed", "error", err, "property_id", p.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save property"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Property created successfully", p))
}

// inboundMessageRequest is the generic webhook payload for inbound messages,
// used by integrations that are not the Twilio form webhook.
type inboundMessageRequest struct {
	From      string `json:"from"`
	Body      string `json:"body"`
	MediaURL  string `json:"media_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

func (s *Server) inboundMessageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req inboundMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.inboundMessageHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.From == "" || (req.Body == "" && req.MediaURL == "") {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required fields"))
		return
	}
	if len(req.Body) > models.MaxMessageContentLength {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrContentTooLong.Error()))
		return
	}

	resp := models.Response{
		From:      req.From,
		Body:      req.Body,
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
		Time:      time.Now().Unix(),
	}
	if err := s.handler.ProcessIncomingMessage(r.Context(), resp); err != nil {
		slog.Error("Server.inboundMessageHandler: processing failed", "error", err, "from", req.From)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Message processed", nil))
}

// Package models defines the core data structures for leadpipe.
//
// It includes the lead, message and property records shared across modules,
// plus the JSON envelope used by the HTTP API.
package models

import (
	"errors"
	"time"
)

// MessageDirection indicates whether a message was received from or sent to a lead.
type MessageDirection string

const (
	// DirectionIncoming marks a message received from the lead.
	DirectionIncoming MessageDirection = "incoming"
	// DirectionOutgoing marks a message sent by the system or an agent.
	DirectionOutgoing MessageDirection = "outgoing"
)

// MessageKind classifies the media payload of a message.
type MessageKind string

const (
	MessageKindText     MessageKind = "text"
	MessageKindAudio    MessageKind = "audio"
	MessageKindImage    MessageKind = "image"
	MessageKindVideo    MessageKind = "video"
	MessageKindDocument MessageKind = "document"
)

// Validation constants for inbound payloads.
const (
	// MaxMessageContentLength caps the accepted free-text content of a message.
	MaxMessageContentLength = 4096
	// MaxLeadNameLength caps the accepted lead name.
	MaxLeadNameLength = 200
)

// Error variables for better error handling and testability.
var (
	ErrEmptyRecipient    = errors.New("recipient cannot be empty")
	ErrEmptyContent      = errors.New("message content cannot be empty")
	ErrContentTooLong    = errors.New("message content exceeds maximum length")
	ErrInvalidDirection  = errors.New("invalid message direction")
	ErrLeadNameTooLong   = errors.New("lead name exceeds maximum length")
	ErrUnknownStage      = errors.New("unknown pipeline stage")
	ErrIllegalTransition = errors.New("transition not allowed by the pipeline")
	ErrLeadNotFound      = errors.New("lead not found")
	ErrPropertyNotFound  = errors.New("property not found")
	ErrMissingCompanyID  = errors.New("company id is required")
	ErrServiceStopped    = errors.New("messaging service has been stopped")
)

// Lead is a prospective customer accumulating qualification facts over a
// conversation. Qualification fields are pointers so the interpreter can
// distinguish "not yet known" from a real zero value.
type Lead struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Phone     string `json:"telefone"`
	Name      string `json:"nome,omitempty"`

	Stage string `json:"etapa_pipeline"`

	BudgetMin *float64 `json:"orcamento_min,omitempty"`
	BudgetMax *float64 `json:"orcamento_max,omitempty"`
	Location  *string  `json:"localizacao,omitempty"`
	Rooms     *int     `json:"quartos,omitempty"`

	CPF           *string  `json:"cpf,omitempty"`
	Email         *string  `json:"email,omitempty"`
	MonthlyIncome *float64 `json:"renda_mensal,omitempty"`

	MaritalStatus     *string `json:"estado_civil,omitempty"`
	FamilyComposition *string `json:"composicao_familiar,omitempty"`
	Profession        *string `json:"profissao,omitempty"`
	IncomeSource      *string `json:"origem_renda,omitempty"`
	FinancingStatus   *string `json:"situacao_financiamento,omitempty"`
	PurchaseTimeline  *string `json:"prazo_compra,omitempty"`
	PurchaseGoal      *string `json:"objetivo_compra,omitempty"`

	PropertyTypePreference *string `json:"preferencia_tipo_imovel,omitempty"`
	NeighborhoodPreference *string `json:"preferencia_bairro,omitempty"`
	AmenityPreference      *string `json:"preferencia_lazer,omitempty"`
	SecurityPreference     *string `json:"preferencia_seguranca,omitempty"`
	Notes                  string  `json:"observacoes,omitempty"`

	// LastMessageCount records the message count observed the last time the
	// refinement rule ran, so the rule can detect new activity.
	LastMessageCount int `json:"contagem_mensagens"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single conversation entry attached to a lead.
type Message struct {
	ID            string           `json:"id"`
	LeadID        string           `json:"lead_id"`
	CompanyID     string           `json:"company_id"`
	Direction     MessageDirection `json:"direction"`
	Kind          MessageKind      `json:"kind,omitempty"`
	Content       string           `json:"content"`
	Transcription string           `json:"transcription,omitempty"`
	MediaURL      string           `json:"media_url,omitempty"`
	MediaType     string           `json:"media_type,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

// Text returns the best available textual representation of the message,
// preferring the audio transcription over raw content.
func (m Message) Text() string {
	if m.Transcription != "" {
		return m.Transcription
	}
	return m.Content
}

// IsIncoming reports whether the message came from the lead.
func (m Message) IsIncoming() bool {
	return m.Direction == DirectionIncoming
}

// Property is a listing considered for lead matching.
type Property struct {
	ID           string  `json:"id"`
	CompanyID    string  `json:"company_id"`
	Title        string  `json:"titulo"`
	SalePrice    float64 `json:"valor_venda"`
	Bedrooms     int     `json:"dormitorios"`
	Suites       int     `json:"suites"`
	Neighborhood string  `json:"bairro"`
	City         string  `json:"cidade"`
	Description  string  `json:"descricao,omitempty"`
	Highlights   string  `json:"destaques,omitempty"`
	Active       bool    `json:"ativo"`
	Published    bool    `json:"publicado"`
	Purpose      string  `json:"finalidade"`
}

// LeadUpdate carries the subset of lead fields the interpreter proposes to
// change after reading one message. Nil fields are left untouched.
type LeadUpdate struct {
	Name          *string
	BudgetMin     *float64
	BudgetMax     *float64
	Location      *string
	Rooms         *int
	CPF           *string
	Email         *string
	MonthlyIncome *float64
}

// IsEmpty reports whether the update proposes no changes at all.
func (u LeadUpdate) IsEmpty() bool {
	return u.Name == nil && u.BudgetMin == nil && u.BudgetMax == nil &&
		u.Location == nil && u.Rooms == nil && u.CPF == nil &&
		u.Email == nil && u.MonthlyIncome == nil
}

// Apply copies the non-nil fields of the update onto the lead. The lead name
// is only filled in when still unknown; extracted facts otherwise overwrite
// older values since later messages carry fresher information.
func (u LeadUpdate) Apply(lead *Lead) {
	if u.Name != nil && lead.Name == "" {
		lead.Name = *u.Name
	}
	if u.BudgetMin != nil {
		lead.BudgetMin = u.BudgetMin
	}
	if u.BudgetMax != nil {
		lead.BudgetMax = u.BudgetMax
	}
	if u.Location != nil {
		lead.Location = u.Location
	}
	if u.Rooms != nil {
		lead.Rooms = u.Rooms
	}
	if u.CPF != nil {
		lead.CPF = u.CPF
	}
	if u.Email != nil {
		lead.Email = u.Email
	}
	if u.MonthlyIncome != nil {
		lead.MonthlyIncome = u.MonthlyIncome
	}
}

// MessageStatus represents the delivery status of an outbound message.
type MessageStatus string

const (
	// StatusSent indicates the message was handed to the transport.
	StatusSent MessageStatus = "sent"
	// StatusDelivered indicates the message was delivered.
	StatusDelivered MessageStatus = "delivered"
	// StatusRead indicates the message was read.
	StatusRead MessageStatus = "read"
	// StatusFailed indicates the message failed to send.
	StatusFailed MessageStatus = "failed"
)

// Receipt is a delivery status event emitted by a messaging service.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}

// Response is an inbound message event emitted by a messaging service.
type Response struct {
	From      string `json:"from"`
	Body      string `json:"body"`
	MediaURL  string `json:"media_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Time      int64  `json:"time"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse is the JSON envelope returned by every HTTP endpoint.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/imobia/leadpipe/internal/models"
)

// leadProfile bundles the long tail of qualification fields into one JSON
// column instead of a dozen nullable columns.
type leadProfile struct {
	MaritalStatus          *string `json:"estado_civil,omitempty"`
	FamilyComposition      *string `json:"composicao_familiar,omitempty"`
	Profession             *string `json:"profissao,omitempty"`
	IncomeSource           *string `json:"origem_renda,omitempty"`
	FinancingStatus        *string `json:"situacao_financiamento,omitempty"`
	PurchaseTimeline       *string `json:"prazo_compra,omitempty"`
	PurchaseGoal           *string `json:"objetivo_compra,omitempty"`
	PropertyTypePreference *string `json:"preferencia_tipo_imovel,omitempty"`
	NeighborhoodPreference *string `json:"preferencia_bairro,omitempty"`
	AmenityPreference      *string `json:"preferencia_lazer,omitempty"`
	SecurityPreference     *string `json:"preferencia_seguranca,omitempty"`
}

// marshalProfile serializes the lead's profile fields, returning nil for an
// all-empty profile so the column stays NULL.
func marshalProfile(lead models.Lead) (interface{}, error) {
	p := leadProfile{
		MaritalStatus:          lead.MaritalStatus,
		FamilyComposition:      lead.FamilyComposition,
		Profession:             lead.Profession,
		IncomeSource:           lead.IncomeSource,
		FinancingStatus:        lead.FinancingStatus,
		PurchaseTimeline:       lead.PurchaseTimeline,
		PurchaseGoal:           lead.PurchaseGoal,
		PropertyTypePreference: lead.PropertyTypePreference,
		NeighborhoodPreference: lead.NeighborhoodPreference,
		AmenityPreference:      lead.AmenityPreference,
		SecurityPreference:     lead.SecurityPreference,
	}
	if p == (leadProfile{}) {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal lead profile: %w", err)
	}
	return string(data), nil
}

// unmarshalProfile copies a stored profile JSON blob back onto the lead.
func unmarshalProfile(raw sql.NullString, lead *models.Lead) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var p leadProfile
	if err := json.Unmarshal([]byte(raw.String), &p); err != nil {
		return fmt.Errorf("unmarshal lead profile: %w", err)
	}
	lead.MaritalStatus = p.MaritalStatus
	lead.FamilyComposition = p.FamilyComposition
	lead.Profession = p.Profession
	lead.IncomeSource = p.IncomeSource
	lead.FinancingStatus = p.FinancingStatus
	lead.PurchaseTimeline = p.PurchaseTimeline
	lead.PurchaseGoal = p.PurchaseGoal
	lead.PropertyTypePreference = p.PropertyTypePreference
	lead.NeighborhoodPreference = p.NeighborhoodPreference
	lead.AmenityPreference = p.AmenityPreference
	lead.SecurityPreference = p.SecurityPreference
	return nil
}

// rowScanner abstracts sql.Row and sql.Rows for the scan helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanLead reads one lead row in the canonical column order.
func scanLead(row rowScanner) (*models.Lead, error) {
	var lead models.Lead
	var budgetMin, budgetMax, income sql.NullFloat64
	var location, cpf, email, profile sql.NullString
	var rooms sql.NullInt64
	err := row.Scan(
		&lead.ID, &lead.CompanyID, &lead.Phone, &lead.Name, &lead.Stage,
		&budgetMin, &budgetMax, &location, &rooms, &cpf, &email, &income,
		&profile, &lead.Notes, &lead.LastMessageCount,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if budgetMin.Valid {
		lead.BudgetMin = &budgetMin.Float64
	}
	if budgetMax.Valid {
		lead.BudgetMax = &budgetMax.Float64
	}
	if location.Valid {
		lead.Location = &location.String
	}
	if rooms.Valid {
		n := int(rooms.Int64)
		lead.Rooms = &n
	}
	if cpf.Valid {
		lead.CPF = &cpf.String
	}
	if email.Valid {
		lead.Email = &email.String
	}
	if income.Valid {
		lead.MonthlyIncome = &income.Float64
	}
	if err := unmarshalProfile(profile, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

// scanMessage reads one message row in the canonical column order.
func scanMessage(row rowScanner) (models.Message, error) {
	var m models.Message
	err := row.Scan(
		&m.ID, &m.LeadID, &m.CompanyID, &m.Direction, &m.Kind,
		&m.Content, &m.Transcription, &m.MediaURL, &m.MediaType, &m.Timestamp,
	)
	return m, err
}

// scanProperty reads one property row in the canonical column order.
func scanProperty(row rowScanner) (models.Property, error) {
	var p models.Property
	err := row.Scan(
		&p.ID, &p.CompanyID, &p.Title, &p.SalePrice, &p.Bedrooms, &p.Suites,
		&p.Neighborhood, &p.City, &p.Description, &p.Highlights,
		&p.Active, &p.Published, &p.Purpose,
	)
	return p, err
}

// nilIfEmpty returns nil for empty strings so nullable columns stay NULL.
func nilIfEmpty(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

// nilFloat returns nil for nil float pointers.
func nilFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

// nilInt returns nil for nil int pointers.
func nilInt(i *int) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "embed"

	"github.com/imobia/leadpipe/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is the PostgreSQL-backed Store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// SaveLead inserts or updates a lead record.
func (s *PostgresStore) SaveLead(lead models.Lead) error {
	profile, err := marshalProfile(lead)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO leads (id, company_id, phone, name, stage, budget_min, budget_max,
			location, rooms, cpf, email, monthly_income, profile, notes,
			last_message_count, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, stage = EXCLUDED.stage,
			budget_min = EXCLUDED.budget_min, budget_max = EXCLUDED.budget_max,
			location = EXCLUDED.location, rooms = EXCLUDED.rooms,
			cpf = EXCLUDED.cpf, email = EXCLUDED.email,
			monthly_income = EXCLUDED.monthly_income, profile = EXCLUDED.profile,
			notes = EXCLUDED.notes, last_message_count = EXCLUDED.last_message_count,
			updated_at = EXCLUDED.updated_at`,
		lead.ID, lead.CompanyID, lead.Phone, lead.Name, lead.Stage,
		nilFloat(lead.BudgetMin), nilFloat(lead.BudgetMax), nilIfEmpty(lead.Location),
		nilInt(lead.Rooms), nilIfEmpty(lead.CPF), nilIfEmpty(lead.Email),
		nilFloat(lead.MonthlyIncome), profile, lead.Notes,
		lead.LastMessageCount, lead.CreatedAt, lead.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveLead failed", "error", err, "lead_id", lead.ID)
		return fmt.Errorf("failed to save lead %s: %w", lead.ID, err)
	}
	return nil
}

const leadColumns = `id, company_id, phone, name, stage, budget_min, budget_max,
	location, rooms, cpf, email, monthly_income, profile, notes,
	last_message_count, created_at, updated_at`

// GetLead retrieves a lead by id, nil when absent.
func (s *PostgresStore) GetLead(id string) (*models.Lead, error) {
	row := s.db.QueryRow(`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetLead failed", "error", err, "lead_id", id)
		return nil, fmt.Errorf("failed to get lead %s: %w", id, err)
	}
	return lead, nil
}

// GetLeadByPhone retrieves a lead by company and phone, nil when absent.
func (s *PostgresStore) GetLeadByPhone(companyID, phone string) (*models.Lead, error) {
	row := s.db.QueryRow(`SELECT `+leadColumns+` FROM leads WHERE company_id = $1 AND phone = $2`, companyID, phone)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetLeadByPhone failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to get lead by phone: %w", err)
	}
	return lead, nil
}

// ListLeads returns every lead of a company.
func (s *PostgresStore) ListLeads(companyID string) ([]models.Lead, error) {
	rows, err := s.db.Query(`SELECT `+leadColumns+` FROM leads WHERE company_id = $1 ORDER BY created_at`, companyID)
	if err != nil {
		slog.Error("PostgresStore ListLeads query failed", "error", err)
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()
	var leads []models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead row: %w", err)
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lead rows: %w", err)
	}
	return leads, nil
}

// DeleteLead removes a lead and its messages.
func (s *PostgresStore) DeleteLead(id string) error {
	if _, err := s.db.Exec(`DELETE FROM leads WHERE id = $1`, id); err != nil {
		slog.Error("PostgresStore DeleteLead failed", "error", err, "lead_id", id)
		return fmt.Errorf("failed to delete lead %s: %w", id, err)
	}
	return nil
}

// AddMessage appends a message to a lead's conversation.
func (s *PostgresStore) AddMessage(msg models.Message) error {
	_, err := s.db.Exec(`
		INSERT INTO messages (id, lead_id, company_id, direction, kind, content,
			transcription, media_url, media_type, ts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		msg.ID, msg.LeadID, msg.CompanyID, msg.Direction, msg.Kind,
		msg.Content, msg.Transcription, msg.MediaURL, msg.MediaType, msg.Timestamp)
	if err != nil {
		slog.Error("PostgresStore AddMessage failed", "error", err, "lead_id", msg.LeadID)
		return fmt.Errorf("failed to insert message for lead %s: %w", msg.LeadID, err)
	}
	return nil
}

// GetMessages returns a lead's messages ordered by timestamp ascending.
func (s *PostgresStore) GetMessages(leadID string) ([]models.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, lead_id, company_id, direction, kind, content, transcription,
			media_url, media_type, ts
		FROM messages WHERE lead_id = $1 ORDER BY ts`, leadID)
	if err != nil {
		slog.Error("PostgresStore GetMessages query failed", "error", err, "lead_id", leadID)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	var msgs []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	return msgs, nil
}

// CountMessages returns the number of messages exchanged with a lead.
func (s *PostgresStore) CountMessages(leadID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE lead_id = $1`, leadID).Scan(&count)
	if err != nil {
		slog.Error("PostgresStore CountMessages failed", "error", err, "lead_id", leadID)
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// SaveProperty inserts or updates a property listing.
func (s *PostgresStore) SaveProperty(p models.Property) error {
	_, err := s.db.Exec(`
		INSERT INTO properties (id, company_id, title, sale_price, bedrooms, suites,
			neighborhood, city, description, highlights, active, published, purpose)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, sale_price = EXCLUDED.sale_price,
			bedrooms = EXCLUDED.bedrooms, suites = EXCLUDED.suites,
			neighborhood = EXCLUDED.neighborhood, city = EXCLUDED.city,
			description = EXCLUDED.description, highlights = EXCLUDED.highlights,
			active = EXCLUDED.active, published = EXCLUDED.published,
			purpose = EXCLUDED.purpose`,
		p.ID, p.CompanyID, p.Title, p.SalePrice, p.Bedrooms, p.Suites,
		p.Neighborhood, p.City, p.Description, p.Highlights,
		p.Active, p.Published, p.Purpose)
	if err != nil {
		slog.Error("PostgresStore SaveProperty failed", "error", err, "property_id", p.ID)
		return fmt.Errorf("failed to save property %s: %w", p.ID, err)
	}
	return nil
}

// GetProperty retrieves a property by id, nil when absent.
func (s *PostgresStore) GetProperty(id string) (*models.Property, error) {
	row := s.db.QueryRow(`
		SELECT id, company_id, title, sale_price, bedrooms, suites, neighborhood,
			city, description, highlights, active, published, purpose
		FROM properties WHERE id = $1`, id)
	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetProperty failed", "error", err, "property_id", id)
		return nil, fmt.Errorf("failed to get property %s: %w", id, err)
	}
	return &p, nil
}

// QueryProperties executes a declarative property filter.
func (s *PostgresStore) QueryProperties(filter models.PropertyFilter) ([]models.Property, error) {
	var conditions []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CompanyID != "" {
		conditions = append(conditions, "company_id = "+arg(filter.CompanyID))
	}
	if filter.OnlyActive {
		conditions = append(conditions, "active = TRUE")
	}
	if filter.OnlyPublished {
		conditions = append(conditions, "published = TRUE")
	}
	if filter.Purpose != "" {
		conditions = append(conditions, "purpose = "+arg(filter.Purpose))
	}
	if filter.PriceMin != nil {
		conditions = append(conditions, "sale_price >= "+arg(*filter.PriceMin))
	}
	if filter.PriceMax != nil {
		conditions = append(conditions, "sale_price <= "+arg(*filter.PriceMax))
	}
	if filter.MinBedrooms != nil {
		conditions = append(conditions, "bedrooms >= "+arg(*filter.MinBedrooms))
	}
	if filter.Location != nil && *filter.Location != "" {
		pattern := "%" + strings.ToLower(*filter.Location) + "%"
		placeholder := arg(pattern)
		conditions = append(conditions, "(LOWER(neighborhood) LIKE "+placeholder+" OR LOWER(city) LIKE "+placeholder+")")
	}

	query := `SELECT id, company_id, title, sale_price, bedrooms, suites, neighborhood,
		city, description, highlights, active, published, purpose FROM properties`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY sale_price"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore QueryProperties failed", "error", err)
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()
	var props []models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property row: %w", err)
		}
		props = append(props, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate property rows: %w", err)
	}
	return props, nil
}

// Close releases the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

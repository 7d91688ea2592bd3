// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "embed"

	"github.com/imobia/leadpipe/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultSQLiteDSN is the fallback database path used when no DSN is
// configured.
const DefaultSQLiteDSN = "data/leadpipe.db"

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is the SQLite-backed Store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store based on provided options. When
// no DSN is given it falls back to DefaultSQLiteDSN, creating the parent
// directory if needed.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	dsn := cfg.DSN
	if dsn == "" {
		dsn = DefaultSQLiteDSN
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: creating SQLite store", "dsn", dsn)

	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("Failed to create SQLite data directory", "dir", dir, "error", err)
			return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		slog.Error("Failed to open SQLite database", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")
	return &SQLiteStore{db: db}, nil
}

// SaveLead inserts or updates a lead record.
func (s *SQLiteStore) SaveLead(lead models.Lead) error {
	profile, err := marshalProfile(lead)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO leads (id, company_id, phone, name, stage, budget_min, budget_max,
			location, rooms, cpf, email, monthly_income, profile, notes,
			last_message_count, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, stage = excluded.stage,
			budget_min = excluded.budget_min, budget_max = excluded.budget_max,
			location = excluded.location, rooms = excluded.rooms,
			cpf = excluded.cpf, email = excluded.email,
			monthly_income = excluded.monthly_income, profile = excluded.profile,
			notes = excluded.notes, last_message_count = excluded.last_message_count,
			updated_at = excluded.updated_at`,
		lead.ID, lead.CompanyID, lead.Phone, lead.Name, lead.Stage,
		nilFloat(lead.BudgetMin), nilFloat(lead.BudgetMax), nilIfEmpty(lead.Location),
		nilInt(lead.Rooms), nilIfEmpty(lead.CPF), nilIfEmpty(lead.Email),
		nilFloat(lead.MonthlyIncome), profile, lead.Notes,
		lead.LastMessageCount, lead.CreatedAt, lead.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveLead failed", "error", err, "lead_id", lead.ID)
		return fmt.Errorf("failed to save lead %s: %w", lead.ID, err)
	}
	return nil
}

// GetLead retrieves a lead by id, nil when absent.
func (s *SQLiteStore) GetLead(id string) (*models.Lead, error) {
	row := s.db.QueryRow(`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetLead failed", "error", err, "lead_id", id)
		return nil, fmt.Errorf("failed to get lead %s: %w", id, err)
	}
	return lead, nil
}

// GetLeadByPhone retrieves a lead by company and phone, nil when absent.
func (s *SQLiteStore) GetLeadByPhone(companyID, phone string) (*models.Lead, error) {
	row := s.db.QueryRow(`SELECT `+leadColumns+` FROM leads WHERE company_id = ? AND phone = ?`, companyID, phone)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetLeadByPhone failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to get lead by phone: %w", err)
	}
	return lead, nil
}

// ListLeads returns every lead of a company.
func (s *SQLiteStore) ListLeads(companyID string) ([]models.Lead, error) {
	rows, err := s.db.Query(`SELECT `+leadColumns+` FROM leads WHERE company_id = ? ORDER BY created_at`, companyID)
	if err != nil {
		slog.Error("SQLiteStore ListLeads query failed", "error", err)
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
func (s *SQLiteStore) DeleteLead(id string) error {
	if _, err := s.db.Exec(`DELETE FROM leads WHERE id = ?`, id); err != nil {
		slog.Error("SQLiteStore DeleteLead failed", "error", err, "lead_id", id)
		return fmt.Errorf("failed to delete lead %s: %w", id, err)
	}
	return nil
}

// AddMessage appends a message to a lead's conversation.
func (s *SQLiteStore) AddMessage(msg models.Message) error {
	_, err := s.db.Exec(`
		INSERT INTO messages (id, lead_id, company_id, direction, kind, content,
			transcription, media_url, media_type, ts)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		msg.ID, msg.LeadID, msg.CompanyID, msg.Direction, msg.Kind,
		msg.Content, msg.Transcription, msg.MediaURL, msg.MediaType, msg.Timestamp)
	if err != nil {
		slog.Error("SQLiteStore AddMessage failed", "error", err, "lead_id", msg.LeadID)
		return fmt.Errorf("failed to insert message for lead %s: %w", msg.LeadID, err)
	}
	return nil
}

// GetMessages returns a lead's messages ordered by timestamp ascending.
func (s *SQLiteStore) GetMessages(leadID string) ([]models.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, lead_id, company_id, direction, kind, content, transcription,
			media_url, media_type, ts
		FROM messages WHERE lead_id = ? ORDER BY ts`, leadID)
	if err != nil {
		slog.Error("SQLiteStore GetMessages query failed", "error", err, "lead_id", leadID)
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
func (s *SQLiteStore) CountMessages(leadID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE lead_id = ?`, leadID).Scan(&count)
	if err != nil {
		slog.Error("SQLiteStore CountMessages failed", "error", err, "lead_id", leadID)
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// SaveProperty inserts or updates a property listing.
func (s *SQLiteStore) SaveProperty(p models.Property) error {
	_, err := s.db.Exec(`
		INSERT INTO properties (id, company_id, title, sale_price, bedrooms, suites,
			neighborhood, city, description, highlights, active, published, purpose)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title, sale_price = excluded.sale_price,
			bedrooms = excluded.bedrooms, suites = excluded.suites,
			neighborhood = excluded.neighborhood, city = excluded.city,
			description = excluded.description, highlights = excluded.highlights,
			active = excluded.active, published = excluded.published,
			purpose = excluded.purpose`,
		p.ID, p.CompanyID, p.Title, p.SalePrice, p.Bedrooms, p.Suites,
		p.Neighborhood, p.City, p.Description, p.Highlights,
		p.Active, p.Published, p.Purpose)
	if err != nil {
		slog.Error("SQLiteStore SaveProperty failed", "error", err, "property_id", p.ID)
		return fmt.Errorf("failed to save property %s: %w", p.ID, err)
	}
	return nil
}

// GetProperty retrieves a property by id, nil when absent.
func (s *SQLiteStore) GetProperty(id string) (*models.Property, error) {
	row := s.db.QueryRow(`
		SELECT id, company_id, title, sale_price, bedrooms, suites, neighborhood,
			city, description, highlights, active, published, purpose
		FROM properties WHERE id = ?`, id)
	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetProperty failed", "error", err, "property_id", id)
		return nil, fmt.Errorf("failed to get property %s: %w", id, err)
	}
	return &p, nil
}

// QueryProperties executes a declarative property filter.
func (s *SQLiteStore) QueryProperties(filter models.PropertyFilter) ([]models.Property, error) {
	var conditions []string
	var args []interface{}

	if filter.CompanyID != "" {
		conditions = append(conditions, "company_id = ?")
		args = append(args, filter.CompanyID)
	}
	if filter.OnlyActive {
		conditions = append(conditions, "active = 1")
	}
	if filter.OnlyPublished {
		conditions = append(conditions, "published = 1")
	}
	if filter.Purpose != "" {
		conditions = append(conditions, "purpose = ?")
		args = append(args, filter.Purpose)
	}
	if filter.PriceMin != nil {
		conditions = append(conditions, "sale_price >= ?")
		args = append(args, *filter.PriceMin)
	}
	if filter.PriceMax != nil {
		conditions = append(conditions, "sale_price <= ?")
		args = append(args, *filter.PriceMax)
	}
	if filter.MinBedrooms != nil {
		conditions = append(conditions, "bedrooms >= ?")
		args = append(args, *filter.MinBedrooms)
	}
	if filter.Location != nil && *filter.Location != "" {
		pattern := "%" + strings.ToLower(*filter.Location) + "%"
		conditions = append(conditions, "(LOWER(neighborhood) LIKE ? OR LOWER(city) LIKE ?)")
		args = append(args, pattern, pattern)
	}

	query := `SELECT id, company_id, title, sale_price, bedrooms, suites, neighborhood,
		city, description, highlights, active, published, purpose FROM properties`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY sale_price"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore QueryProperties failed", "error", err)
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

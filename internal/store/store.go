// Package store provides storage backends for leadpipe.
//
// It defines the Store interface over lead, message and property records and
// ships an in-memory implementation for tests plus PostgreSQL and SQLite
// backends for production use.
package store

import (
	"strings"

	"github.com/imobia/leadpipe/internal/models"
)

// Store is the persistence contract consumed by the messaging and API layers.
type Store interface {
	// SaveLead inserts or updates a lead record.
	SaveLead(lead models.Lead) error
	// GetLead retrieves a lead by id, nil when absent.
	GetLead(id string) (*models.Lead, error)
	// GetLeadByPhone retrieves a lead by company and phone, nil when absent.
	GetLeadByPhone(companyID, phone string) (*models.Lead, error)
	// ListLeads returns every lead of a company.
	ListLeads(companyID string) ([]models.Lead, error)
	// DeleteLead removes a lead and its messages.
	DeleteLead(id string) error

	// AddMessage appends a message to a lead's conversation.
	AddMessage(msg models.Message) error
	// GetMessages returns a lead's messages ordered by timestamp ascending.
	GetMessages(leadID string) ([]models.Message, error)
	// CountMessages returns the number of messages exchanged with a lead.
	CountMessages(leadID string) (int, error)

	// SaveProperty inserts or updates a property listing.
	SaveProperty(property models.Property) error
	// GetProperty retrieves a property by id, nil when absent.
	GetProperty(id string) (*models.Property, error)
	// QueryProperties executes a declarative property filter.
	QueryProperties(filter models.PropertyFilter) ([]models.Property, error)

	// Close releases the underlying resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store constructors.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType reports "postgres" for PostgreSQL-style connection strings
// and "sqlite" for everything else (file paths).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/imobia/leadpipe/internal/models"
)

// InMemoryStore is a thread-safe in-memory Store used by tests and local
// development.
type InMemoryStore struct {
	mu         sync.RWMutex
	leads      map[string]models.Lead
	messages   map[string][]models.Message
	properties map[string]models.Property
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		leads:      make(map[string]models.Lead),
		messages:   make(map[string][]models.Message),
		properties: make(map[string]models.Property),
	}
}

// SaveLead inserts or updates a lead record.
func (s *InMemoryStore) SaveLead(lead models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[lead.ID] = lead
	return nil
}

// GetLead retrieves a lead by id, nil when absent.
func (s *InMemoryStore) GetLead(id string) (*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if lead, ok := s.leads[id]; ok {
		return &lead, nil
	}
	return nil, nil
}

// GetLeadByPhone retrieves a lead by company and phone, nil when absent.
func (s *InMemoryStore) GetLeadByPhone(companyID, phone string) (*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, lead := range s.leads {
		if lead.CompanyID == companyID && lead.Phone == phone {
			l := lead
			return &l, nil
		}
	}
	return nil, nil
}

// ListLeads returns every lead of a company.
func (s *InMemoryStore) ListLeads(companyID string) ([]models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var leads []models.Lead
	for _, lead := range s.leads {
		if lead.CompanyID == companyID {
			leads = append(leads, lead)
		}
	}
	sort.Slice(leads, func(i, j int) bool { return leads[i].CreatedAt.Before(leads[j].CreatedAt) })
	return leads, nil
}

// DeleteLead removes a lead and its messages.
func (s *InMemoryStore) DeleteLead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leads, id)
	delete(s.messages, id)
	return nil
}

// AddMessage appends a message to a lead's conversation.
func (s *InMemoryStore) AddMessage(msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.LeadID] = append(s.messages[msg.LeadID], msg)
	return nil
}

// GetMessages returns a lead's messages ordered by timestamp ascending.
func (s *InMemoryStore) GetMessages(leadID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]models.Message, len(s.messages[leadID]))
	copy(msgs, s.messages[leadID])
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })
	return msgs, nil
}

// CountMessages returns the number of messages exchanged with a lead.
func (s *InMemoryStore) CountMessages(leadID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[leadID]), nil
}

// SaveProperty inserts or updates a property listing.
func (s *InMemoryStore) SaveProperty(property models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[property.ID] = property
	return nil
}

// GetProperty retrieves a property by id, nil when absent.
func (s *InMemoryStore) GetProperty(id string) (*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.properties[id]; ok {
		return &p, nil
	}
	return nil, nil
}

// QueryProperties executes a declarative property filter.
func (s *InMemoryStore) QueryProperties(filter models.PropertyFilter) ([]models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Property
	for _, p := range s.properties {
		if !matchesFilter(p, filter) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SalePrice < out[j].SalePrice })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// matchesFilter applies the PropertyFilter semantics to one property.
func matchesFilter(p models.Property, f models.PropertyFilter) bool {
	if f.CompanyID != "" && p.CompanyID != f.CompanyID {
		return false
	}
	if f.OnlyActive && !p.Active {
		return false
	}
	if f.OnlyPublished && !p.Published {
		return false
	}
	if f.Purpose != "" && p.Purpose != f.Purpose {
		return false
	}
	if f.PriceMin != nil && p.SalePrice < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && p.SalePrice > *f.PriceMax {
		return false
	}
	if f.MinBedrooms != nil && p.Bedrooms < *f.MinBedrooms {
		return false
	}
	if f.Location != nil && *f.Location != "" {
		loc := strings.ToLower(*f.Location)
		if !strings.Contains(strings.ToLower(p.Neighborhood), loc) &&
			!strings.Contains(strings.ToLower(p.City), loc) {
			return false
		}
	}
	return true
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}

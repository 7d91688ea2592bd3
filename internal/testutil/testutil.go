// Package testutil provides common test utilities and helpers for leadpipe tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/imobia/leadpipe/internal/api"
	"github.com/imobia/leadpipe/internal/funnel"
	"github.com/imobia/leadpipe/internal/messaging"
	"github.com/imobia/leadpipe/internal/models"
	"github.com/imobia/leadpipe/internal/scheduler"
	"github.com/imobia/leadpipe/internal/store"
	"github.com/imobia/leadpipe/internal/whatsapp"
)

// TestCompanyID is the tenant used by all servers built with NewTestServer.
const TestCompanyID = "test-company"

// NewTestServer creates a test API server with in-memory dependencies.
// This centralizes the test server creation logic used across multiple test files.
func NewTestServer() (*api.Server, store.Store) {
	st := store.NewInMemoryStore()
	msgService := messaging.NewWhatsAppService(whatsapp.NewMockClient())
	sched := scheduler.NewScheduler()
	handler := messaging.NewLeadHandler(st, msgService, nil, TestCompanyID)

	return api.NewServer(msgService, sched, st, handler, TestCompanyID), st
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes a JSON response envelope and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// SeedLead stores a lead under TestCompanyID and returns it.
func SeedLead(t *testing.T, st store.Store, phone, stage string) models.Lead {
	t.Helper()
	now := time.Now()
	lead := models.Lead{
		ID:        uuid.New().String(),
		CompanyID: TestCompanyID,
		Phone:     phone,
		Stage:     stage,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if lead.Stage == "" {
		lead.Stage = funnel.StageWelcome
	}
	if err := st.SaveLead(lead); err != nil {
		t.Fatalf("failed to seed lead: %v", err)
	}
	return lead
}

// SeedProperty stores a property under TestCompanyID and returns it.
func SeedProperty(t *testing.T, st store.Store, title string, price float64, rooms int, neighborhood string) models.Property {
	t.Helper()
	prop := models.Property{
		ID:           uuid.New().String(),
		CompanyID:    TestCompanyID,
		Title:        title,
		Purpose:      "venda",
		SalePrice:    price,
		Bedrooms:     rooms,
		Neighborhood: neighborhood,
		City:         "São Paulo",
		Active:       true,
		Published:    true,
	}
	if err := st.SaveProperty(prop); err != nil {
		t.Fatalf("failed to seed property: %v", err)
	}
	return prop
}

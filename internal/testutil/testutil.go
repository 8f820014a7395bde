// Package testutil provides common test utilities and helpers for the
// home-sampling service tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohammadamiw/salamatlab-sub001/internal/api"
	"github.com/mohammadamiw/salamatlab-sub001/internal/models"
	"github.com/mohammadamiw/salamatlab-sub001/internal/sms"
	"github.com/mohammadamiw/salamatlab-sub001/internal/store"
)

// NewTestServer creates a test API server with in-memory dependencies.
// This centralizes the test server creation logic used across test files.
func NewTestServer(opts ...api.Option) (*api.Server, *store.InMemoryStore, *sms.MockSender) {
	sender := sms.NewMockSender()
	st := store.NewInMemoryStore()
	return api.NewServer(st, sender, opts...), st, sender
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
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

// SeedTestRequests adds sample bookings to the store for testing.
func SeedTestRequests(t *testing.T, st store.Store) {
	t.Helper()

	payloads := []models.SubmissionPayload{
		{
			Type:  models.SubmissionTypePackage,
			Title: "Home sampling - General checkup",
			PersonalInfo: models.PersonalInfo{
				FullName: "Sara Ahmadi",
				Phone:    "9121234567",
			},
		},
		{
			Type:  models.SubmissionTypePrescription,
			Title: "Home sampling with doctor's prescription",
			PersonalInfo: models.PersonalInfo{
				FullName: "Reza Karimi",
				Phone:    "9357654321",
			},
		},
	}

	for _, payload := range payloads {
		if _, err := st.AddRequest(models.SamplingRequest{Payload: payload}); err != nil {
			t.Fatalf("failed to seed test request: %v", err)
		}
	}
}

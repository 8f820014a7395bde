package testutil

import (
	"net/http"
	"testing"
)

func TestNewTestServer(t *testing.T) {
	server, st, sender := NewTestServer()
	if server == nil {
		t.Fatal("NewTestServer returned nil server")
	}
	if st == nil || sender == nil {
		t.Fatal("NewTestServer returned nil dependencies")
	}
}

func TestSeedTestRequests(t *testing.T) {
	_, st, _ := NewTestServer()
	SeedTestRequests(t, st)

	requests, err := st.GetRequests()
	if err != nil {
		t.Fatalf("GetRequests failed: %v", err)
	}
	if len(requests) != 2 {
		t.Errorf("expected 2 seeded requests, got %d", len(requests))
	}
}

func TestCreateHTTPRequest(t *testing.T) {
	req := CreateHTTPRequest(t, http.MethodPost, "/api/booking", map[string]string{"title": "x"})
	if req.Method != http.MethodPost {
		t.Errorf("expected POST, got %s", req.Method)
	}
	if req.URL.Path != "/api/booking" {
		t.Errorf("unexpected path %s", req.URL.Path)
	}

	empty := CreateHTTPRequest(t, http.MethodGet, "/api/requests", nil)
	if empty.Method != http.MethodGet {
		t.Errorf("expected GET, got %s", empty.Method)
	}
}

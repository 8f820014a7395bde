package store

import (
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/mohammadamiw/salamatlab-sub001/internal/models"
)

func sampleRequest() models.SamplingRequest {
	return models.SamplingRequest{
		Payload: models.SubmissionPayload{
			Type:  models.SubmissionTypePackage,
			Title: "Home sampling - General checkup",
			PersonalInfo: models.PersonalInfo{
				FullName: "Sara Ahmadi",
				Phone:    "9121234567",
			},
		},
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	id, err := s.AddRequest(sampleRequest())
	if err != nil {
		t.Fatalf("AddRequest failed: %v", err)
	}
	if id == 0 {
		t.Error("expected a non-zero request id")
	}

	requests, err := s.GetRequests()
	if err != nil {
		t.Fatalf("GetRequests failed: %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(requests))
	}
	if requests[0].Payload.PersonalInfo.FullName != "Sara Ahmadi" {
		t.Errorf("payload not round-tripped: %+v", requests[0].Payload)
	}

	code := models.OTPCode{
		Phone:     "9121234567",
		Code:      "123456",
		ExpiresAt: time.Now().Add(2 * time.Minute).UTC(),
	}
	if err := s.SaveOTPCode(code); err != nil {
		t.Fatalf("SaveOTPCode failed: %v", err)
	}

	got, err := s.GetOTPCode("9121234567")
	if err != nil {
		t.Fatalf("GetOTPCode failed: %v", err)
	}
	if got == nil || got.Code != "123456" {
		t.Fatalf("expected stored code 123456, got %+v", got)
	}

	if err := s.IncrementOTPAttempts("9121234567"); err != nil {
		t.Fatalf("IncrementOTPAttempts failed: %v", err)
	}
	got, err = s.GetOTPCode("9121234567")
	if err != nil {
		t.Fatalf("GetOTPCode after increment failed: %v", err)
	}
	if got.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", got.Attempts)
	}

	// Saving again replaces the code and resets attempts.
	code.Code = "654321"
	code.Attempts = 0
	if err := s.SaveOTPCode(code); err != nil {
		t.Fatalf("SaveOTPCode replace failed: %v", err)
	}
	got, err = s.GetOTPCode("9121234567")
	if err != nil {
		t.Fatalf("GetOTPCode after replace failed: %v", err)
	}
	if got.Code != "654321" || got.Attempts != 0 {
		t.Errorf("expected replaced code with reset attempts, got %+v", got)
	}

	if err := s.DeleteOTPCode("9121234567"); err != nil {
		t.Fatalf("DeleteOTPCode failed: %v", err)
	}
	got, err = s.GetOTPCode("9121234567")
	if err != nil {
		t.Fatalf("GetOTPCode after delete failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected deleted code, got %+v", got)
	}
}

func TestInMemoryStore(t *testing.T) {
	s := NewInMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "store.db")
	s, err := NewSQLiteStore(WithSQLiteDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	// This test requires a running PostgreSQL instance.
	// Set the DATABASE_URL environment variable for the connection string.
	connStr := getenvOrSkip(t, "DATABASE_URL")
	s, err := NewPostgresStore(WithPostgresDSN(connStr))
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer s.Close()
	s.db.Exec("DELETE FROM sampling_requests")
	s.db.Exec("DELETE FROM otp_codes")
	exerciseStore(t, s)
}

func getenvOrSkip(t *testing.T, key string) string {
	v := ""
	if val, ok := syscall.Getenv(key); ok {
		v = val
	}
	if v == "" {
		t.Skipf("env %s not set", key)
	}
	return v
}

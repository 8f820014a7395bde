// Package store provides storage backends for the home-sampling service.
//
// It includes an in-memory store for tests and single-process use, plus
// SQLite and PostgreSQL backends for persistent deployments. All backends
// persist booking requests and one-time verification codes.
package store

import (
	"strings"
	"sync"

	"github.com/mohammadamiw/salamatlab-sub001/internal/models"
)

// DetectDSNType reports "postgres" for PostgreSQL connection strings and
// "sqlite" for file paths.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// Store is the persistence interface consumed by the API server.
type Store interface {
	// AddRequest persists a booking request and returns its assigned ID.
	AddRequest(req models.SamplingRequest) (int64, error)
	// GetRequests returns all persisted booking requests, oldest first.
	GetRequests() ([]models.SamplingRequest, error)
	// SaveOTPCode stores a verification code for a phone, replacing any
	// earlier code for the same phone.
	SaveOTPCode(code models.OTPCode) error
	// GetOTPCode returns the stored code for a phone, or nil when none exists.
	GetOTPCode(phone string) (*models.OTPCode, error)
	// IncrementOTPAttempts bumps the failed-attempt counter for a phone.
	IncrementOTPAttempts(phone string) error
	// DeleteOTPCode removes the stored code for a phone.
	DeleteOTPCode(phone string) error
	// Close releases the backend's resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	// DSN is the backend-specific connection string: a file path for SQLite,
	// a connection URL for PostgreSQL.
	DSN string
}

// Option configures store backend options.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore keeps everything in process memory. It backs tests and
// deployments that do not need persistence across restarts.
type InMemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	requests []models.SamplingRequest
	codes    map[string]models.OTPCode
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1, codes: make(map[string]models.OTPCode)}
}

func (s *InMemoryStore) AddRequest(req models.SamplingRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req.ID = s.nextID
	s.nextID++
	s.requests = append(s.requests, req)
	return req.ID, nil
}

func (s *InMemoryStore) GetRequests() ([]models.SamplingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SamplingRequest, len(s.requests))
	copy(out, s.requests)
	return out, nil
}

func (s *InMemoryStore) SaveOTPCode(code models.OTPCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.Phone] = code
	return nil
}

func (s *InMemoryStore) GetOTPCode(phone string) (*models.OTPCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[phone]
	if !ok {
		return nil, nil
	}
	return &code, nil
}

func (s *InMemoryStore) IncrementOTPAttempts(phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[phone]
	if !ok {
		return nil
	}
	code.Attempts++
	s.codes[phone] = code
	return nil
}

func (s *InMemoryStore) DeleteOTPCode(phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, phone)
	return nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

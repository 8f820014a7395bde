// Package store provides storage backends for the home-sampling service.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
	"github.com/mohammadamiw/salamatlab-sub001/internal/models"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the maximum number of open connections to the database.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

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

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
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

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddRequest(req models.SamplingRequest) (int64, error) {
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	var id int64
	err = s.db.QueryRow(`INSERT INTO sampling_requests (payload, created_at) VALUES ($1, $2) RETURNING id`,
		payload, req.CreatedAt).Scan(&id)
	if err != nil {
		slog.Error("PostgresStore AddRequest failed", "error", err)
		return 0, fmt.Errorf("failed to insert sampling request: %w", err)
	}
	slog.Debug("PostgresStore AddRequest succeeded", "id", id, "type", req.Payload.Type)
	return id, nil
}

func (s *PostgresStore) GetRequests() ([]models.SamplingRequest, error) {
	rows, err := s.db.Query(`SELECT id, payload, created_at FROM sampling_requests ORDER BY id`)
	if err != nil {
		slog.Error("PostgresStore GetRequests query failed", "error", err)
		return nil, fmt.Errorf("failed to query sampling requests: %w", err)
	}
	defer rows.Close()

	var requests []models.SamplingRequest
	for rows.Next() {
		var req models.SamplingRequest
		var payload []byte
		if err := rows.Scan(&req.ID, &payload, &req.CreatedAt); err != nil {
			slog.Error("PostgresStore GetRequests scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan sampling request row: %w", err)
		}
		if err := json.Unmarshal(payload, &req.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal request %d payload: %w", req.ID, err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sampling request rows: %w", err)
	}
	slog.Debug("PostgresStore GetRequests succeeded", "count", len(requests))
	return requests, nil
}

func (s *PostgresStore) SaveOTPCode(code models.OTPCode) error {
	_, err := s.db.Exec(`INSERT INTO otp_codes (phone, code, expires_at, attempts) VALUES ($1, $2, $3, $4)
		ON CONFLICT (phone) DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at, attempts = EXCLUDED.attempts`,
		code.Phone, code.Code, code.ExpiresAt, code.Attempts)
	if err != nil {
		slog.Error("PostgresStore SaveOTPCode failed", "error", err, "phone", code.Phone)
		return fmt.Errorf("failed to save verification code for %s: %w", code.Phone, err)
	}
	return nil
}

func (s *PostgresStore) GetOTPCode(phone string) (*models.OTPCode, error) {
	var code models.OTPCode
	err := s.db.QueryRow(`SELECT phone, code, expires_at, attempts FROM otp_codes WHERE phone = $1`, phone).
		Scan(&code.Phone, &code.Code, &code.ExpiresAt, &code.Attempts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetOTPCode failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to query verification code for %s: %w", phone, err)
	}
	return &code, nil
}

func (s *PostgresStore) IncrementOTPAttempts(phone string) error {
	_, err := s.db.Exec(`UPDATE otp_codes SET attempts = attempts + 1 WHERE phone = $1`, phone)
	if err != nil {
		return fmt.Errorf("failed to increment attempts for %s: %w", phone, err)
	}
	return nil
}

func (s *PostgresStore) DeleteOTPCode(phone string) error {
	_, err := s.db.Exec(`DELETE FROM otp_codes WHERE phone = $1`, phone)
	if err != nil {
		return fmt.Errorf("failed to delete verification code for %s: %w", phone, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

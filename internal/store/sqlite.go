// Package store provides storage backends for the home-sampling service.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/mohammadamiw/salamatlab-sub001/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store. The DSN is a file path to the
// database file; its directory is created when missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddRequest(req models.SamplingRequest) (int64, error) {
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(`INSERT INTO sampling_requests (payload, created_at) VALUES (?, ?)`, string(payload), req.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddRequest failed", "error", err)
		return 0, fmt.Errorf("failed to insert sampling request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted request id: %w", err)
	}
	slog.Debug("SQLiteStore AddRequest succeeded", "id", id, "type", req.Payload.Type)
	return id, nil
}

func (s *SQLiteStore) GetRequests() ([]models.SamplingRequest, error) {
	rows, err := s.db.Query(`SELECT id, payload, created_at FROM sampling_requests ORDER BY id`)
	if err != nil {
		slog.Error("SQLiteStore GetRequests query failed", "error", err)
		return nil, fmt.Errorf("failed to query sampling requests: %w", err)
	}
	defer rows.Close()

	var requests []models.SamplingRequest
	for rows.Next() {
		var req models.SamplingRequest
		var payload string
		if err := rows.Scan(&req.ID, &payload, &req.CreatedAt); err != nil {
			slog.Error("SQLiteStore GetRequests scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan sampling request row: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &req.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal request %d payload: %w", req.ID, err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sampling request rows: %w", err)
	}
	slog.Debug("SQLiteStore GetRequests succeeded", "count", len(requests))
	return requests, nil
}

func (s *SQLiteStore) SaveOTPCode(code models.OTPCode) error {
	_, err := s.db.Exec(`INSERT INTO otp_codes (phone, code, expires_at, attempts) VALUES (?, ?, ?, ?)
		ON CONFLICT(phone) DO UPDATE SET code = excluded.code, expires_at = excluded.expires_at, attempts = excluded.attempts`,
		code.Phone, code.Code, code.ExpiresAt, code.Attempts)
	if err != nil {
		slog.Error("SQLiteStore SaveOTPCode failed", "error", err, "phone", code.Phone)
		return fmt.Errorf("failed to save verification code for %s: %w", code.Phone, err)
	}
	return nil
}

func (s *SQLiteStore) GetOTPCode(phone string) (*models.OTPCode, error) {
	var code models.OTPCode
	err := s.db.QueryRow(`SELECT phone, code, expires_at, attempts FROM otp_codes WHERE phone = ?`, phone).
		Scan(&code.Phone, &code.Code, &code.ExpiresAt, &code.Attempts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetOTPCode failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to query verification code for %s: %w", phone, err)
	}
	return &code, nil
}

func (s *SQLiteStore) IncrementOTPAttempts(phone string) error {
	_, err := s.db.Exec(`UPDATE otp_codes SET attempts = attempts + 1 WHERE phone = ?`, phone)
	if err != nil {
		return fmt.Errorf("failed to increment attempts for %s: %w", phone, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteOTPCode(phone string) error {
	_, err := s.db.Exec(`DELETE FROM otp_codes WHERE phone = ?`, phone)
	if err != nil {
		return fmt.Errorf("failed to delete verification code for %s: %w", phone, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mohammadamiw/salamatlab-sub001/internal/models"
)

// Endpoint is one submission target. A nil error means the endpoint accepted
// the request; the error message of a rejection carries the server's reason.
type Endpoint interface {
	Submit(ctx context.Context, payload models.SubmissionPayload) error
}

// DefaultRequestTimeout bounds one submission round trip.
const DefaultRequestTimeout = 30 * time.Second

// PrimaryEndpoint is the optional remote submission target, authenticated with
// Bearer and x-api-key headers. Any 2xx response counts as acceptance.
type PrimaryEndpoint struct {
	url    string
	apiKey string
	client *http.Client
}

// NewPrimaryEndpoint creates the remote endpoint client.
func NewPrimaryEndpoint(url, apiKey string) *PrimaryEndpoint {
	return &PrimaryEndpoint{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: DefaultRequestTimeout},
	}
}

// Submit posts the payload to the remote endpoint.
func (e *PrimaryEndpoint) Submit(ctx context.Context, payload models.SubmissionPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal submission payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
		req.Header.Set("x-api-key", e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		slog.Warn("PrimaryEndpoint.Submit: request failed", "error", err)
		return fmt.Errorf("primary endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("PrimaryEndpoint.Submit: rejected", "status", resp.StatusCode)
		return fmt.Errorf("primary endpoint returned status %d", resp.StatusCode)
	}
	slog.Debug("PrimaryEndpoint.Submit: accepted")
	return nil
}

// FallbackEndpoint is the local booking endpoint returning {success, error?}.
type FallbackEndpoint struct {
	url    string
	client *http.Client
}

// NewFallbackEndpoint creates the local endpoint client.
func NewFallbackEndpoint(url string) *FallbackEndpoint {
	return &FallbackEndpoint{
		url:    url,
		client: &http.Client{Timeout: DefaultRequestTimeout},
	}
}

// Submit posts the payload to the local booking endpoint and interprets its
// {success, error?} response.
func (e *FallbackEndpoint) Submit(ctx context.Context, payload models.SubmissionPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal submission payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		slog.Warn("FallbackEndpoint.Submit: request failed", "error", err)
		return fmt.Errorf("fallback endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	var result models.BookingResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode booking response: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 && result.Success {
		slog.Debug("FallbackEndpoint.Submit: accepted", "id", result.ID)
		return nil
	}

	msg := result.Error
	if msg == "" {
		msg = fmt.Sprintf("fallback endpoint returned status %d", resp.StatusCode)
	}
	slog.Warn("FallbackEndpoint.Submit: rejected", "message", msg)
	return errors.New(msg)
}

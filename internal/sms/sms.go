// Package sms provides pluggable SMS delivery for notifications and OTP codes.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mohammadamiw/salamatlab-sub001/internal/models"
)

// Sender defines a pluggable SMS delivery abstraction.
type Sender interface {
	// SendSMS sends a text message to a recipient phone number.
	SendSMS(ctx context.Context, to, message string) error
}

// DefaultRequestTimeout bounds one relay round trip.
const DefaultRequestTimeout = 15 * time.Second

// HTTPSender delivers messages through the JSON SMS relay endpoint:
// POST {to, message} with Bearer and x-api-key headers.
type HTTPSender struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPSender creates a sender for the relay at url authenticated with apiKey.
func NewHTTPSender(url, apiKey string) *HTTPSender {
	return &HTTPSender{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: DefaultRequestTimeout},
	}
}

// SendSMS posts the message to the relay. Any non-2xx response is an error.
func (s *HTTPSender) SendSMS(ctx context.Context, to, message string) error {
	data, err := json.Marshal(models.SMSRequest{To: to, Message: message})
	if err != nil {
		return fmt.Errorf("failed to marshal SMS request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("x-api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Error("HTTPSender.SendSMS: relay request failed", "error", err)
		return fmt.Errorf("SMS relay unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("HTTPSender.SendSMS: relay rejected message", "status", resp.StatusCode)
		return fmt.Errorf("SMS relay returned status %d", resp.StatusCode)
	}
	slog.Debug("HTTPSender.SendSMS: message relayed", "to", to)
	return nil
}

// MockSender records sent messages for tests.
type MockSender struct {
	mu       sync.Mutex
	Messages []SentMessage
	Err      error
}

// SentMessage is one recorded delivery.
type SentMessage struct {
	To   string
	Body string
}

// NewMockSender creates an empty MockSender.
func NewMockSender() *MockSender {
	return &MockSender{}
}

// SendSMS records the message, or fails with the configured error.
func (m *MockSender) SendSMS(ctx context.Context, to, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, SentMessage{To: to, Body: message})
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *MockSender) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.Messages))
	copy(out, m.Messages)
	return out
}

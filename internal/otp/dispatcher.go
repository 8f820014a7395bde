package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mohammadamiw/salamatlab-sub001/internal/models"
)

// CodeDispatcher is the external collaborator that sends and checks
// one-time verification codes.
type CodeDispatcher interface {
	// SendCode asks the backend to dispatch a verification code to phone.
	SendCode(ctx context.Context, phone string) error

	// VerifyCode asks the backend to check code against the one sent to phone.
	// A server-side mismatch is reported as models.ErrCodeMismatch.
	VerifyCode(ctx context.Context, phone, code string) error
}

// DefaultRequestTimeout bounds one dispatch or verify round trip.
const DefaultRequestTimeout = 15 * time.Second

// otpWireRequest is the JSON body of the OTP collaborator endpoint.
type otpWireRequest struct {
	Action string `json:"action"`
	Phone  string `json:"phone"`
	Code   string `json:"code,omitempty"`
}

// HTTPDispatcher talks to the OTP endpoint over HTTP.
type HTTPDispatcher struct {
	url    string
	client *http.Client
}

// NewHTTPDispatcher creates a dispatcher for the OTP endpoint at url.
func NewHTTPDispatcher(url string) *HTTPDispatcher {
	return &HTTPDispatcher{
		url:    url,
		client: &http.Client{Timeout: DefaultRequestTimeout},
	}
}

// SendCode posts an {action: "send"} request to the OTP endpoint.
func (d *HTTPDispatcher) SendCode(ctx context.Context, phone string) error {
	return d.post(ctx, otpWireRequest{Action: "send", Phone: phone})
}

// VerifyCode posts an {action: "verify"} request to the OTP endpoint.
func (d *HTTPDispatcher) VerifyCode(ctx context.Context, phone, code string) error {
	err := d.post(ctx, otpWireRequest{Action: "verify", Phone: phone, Code: code})
	if err != nil {
		return err
	}
	return nil
}

func (d *HTTPDispatcher) post(ctx context.Context, reqBody otpWireRequest) error {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal OTP request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build OTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		slog.Error("HTTPDispatcher.post: OTP request failed", "error", err, "action", reqBody.Action)
		return fmt.Errorf("OTP service unreachable: %w", err)
	}
	defer resp.Body.Close()

	var result models.OTPResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode OTP response: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 && result.Success {
		slog.Debug("HTTPDispatcher.post: OTP request succeeded", "action", reqBody.Action)
		return nil
	}

	msg := result.Error
	if msg == "" {
		msg = fmt.Sprintf("OTP service returned status %d", resp.StatusCode)
	}
	if reqBody.Action == "verify" {
		slog.Warn("HTTPDispatcher.post: code rejected", "message", msg)
		return fmt.Errorf("%w: %s", models.ErrCodeMismatch, msg)
	}
	return fmt.Errorf("code dispatch rejected: %s", msg)
}

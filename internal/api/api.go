// Package api provides the HTTP server backing the home-sampling intake flow.
//
// It exposes the OTP endpoint consumed by the verification session, the local
// booking endpoint used as the submission fallback, the file upload endpoint
// for paper prescriptions, the SMS relay, and the lab assistant chat endpoint.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mohammadamiw/salamatlab-sub001/internal/genai"
	"github.com/mohammadamiw/salamatlab-sub001/internal/sms"
	"github.com/mohammadamiw/salamatlab-sub001/internal/store"
)

// Server configuration defaults.
const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = ":8080"
	// DefaultOTPTTL is how long a verification code stays valid.
	DefaultOTPTTL = 5 * time.Minute
	// MaxOTPAttempts bounds failed verification attempts per code.
	MaxOTPAttempts = 5
	// DefaultUploadDir is where prescription uploads are stored.
	DefaultUploadDir = "uploads"
)

// Assistant answers visitor chat messages.
type Assistant interface {
	Reply(ctx context.Context, history []genai.Message, userMessage string) (string, error)
}

// Server handles the HTTP API for the home-sampling backend.
type Server struct {
	st        store.Store
	sender    sms.Sender
	assistant Assistant
	addr      string
	apiKey    string
	uploadDir string
	otpTTL    time.Duration
	now       func() time.Time
}

// Opts holds configuration options for the server.
type Opts struct {
	Addr      string
	APIKey    string
	UploadDir string
	Assistant Assistant
	OTPTTL    time.Duration
}

// Option configures server options.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithAPIKey sets the key required by the SMS relay endpoint.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithUploadDir sets the directory where prescription uploads are stored.
func WithUploadDir(dir string) Option {
	return func(o *Opts) { o.UploadDir = dir }
}

// WithAssistant wires the lab assistant chat backend.
func WithAssistant(a Assistant) Option {
	return func(o *Opts) { o.Assistant = a }
}

// WithOTPTTL overrides how long verification codes stay valid.
func WithOTPTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.OTPTTL = ttl }
}

// NewServer creates an API server backed by st and delivering SMS through sender.
func NewServer(st store.Store, sender sms.Sender, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = DefaultUploadDir
	}
	if cfg.OTPTTL == 0 {
		cfg.OTPTTL = DefaultOTPTTL
	}
	return &Server{
		st:        st,
		sender:    sender,
		assistant: cfg.Assistant,
		addr:      cfg.Addr,
		apiKey:    cfg.APIKey,
		uploadDir: cfg.UploadDir,
		otpTTL:    cfg.OTPTTL,
		now:       time.Now,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/otp", s.otpHandler)
	mux.HandleFunc("/api/booking", s.bookingHandler)
	mux.HandleFunc("/api/requests", s.requestsHandler)
	mux.HandleFunc("/api/upload", s.uploadHandler)
	mux.HandleFunc("/api/sms", s.smsHandler)
	mux.HandleFunc("/api/chat", s.chatHandler)
	mux.HandleFunc("/api/health", s.healthHandler)
	mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadDir))))
	return mux
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server.Run: shutdown failed", "error", err)
			return err
		}
		slog.Info("Server.Run: API stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

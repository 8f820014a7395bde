// Package otp implements the per-phone one-time-code verification session.
//
// A session is a small state machine: Idle -> CodeSent -> Verified. Cooldown
// expiry moves CodeSent back to Idle so the code can be re-requested; a failed
// verify attempt leaves the session in CodeSent so the user may retry without
// requesting a new code. Changing the phone number resets everything.
package otp

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mohammadamiw/salamatlab-sub001/internal/models"
)

// State is the verification session state.
type State string

const (
	StateIdle     State = "IDLE"
	StateCodeSent State = "CODE_SENT"
	StateVerified State = "VERIFIED"
)

// CooldownSeconds is the mandatory wait before a new code may be requested.
const CooldownSeconds = 120

// ErrNoCodeRequested is returned by VerifyCode when no code has been sent for
// the current phone number.
var ErrNoCodeRequested = errors.New("no verification code has been requested")

// Session owns the send/verify/cooldown logic for a single phone number.
type Session struct {
	mu sync.Mutex

	dispatcher CodeDispatcher
	timer      Timer
	now        func() time.Time

	phone             string
	state             State
	verified          bool
	codeRequestedAt   time.Time
	cooldownRemaining int
	tickID            string
}

// Option configures a Session.
type Option func(*Session)

// WithTimer injects the timer used for the cooldown countdown.
func WithTimer(t Timer) Option {
	return func(s *Session) { s.timer = t }
}

// WithNowFunc injects the clock used to stamp code requests.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession creates an idle verification session backed by the given dispatcher.
func NewSession(dispatcher CodeDispatcher, opts ...Option) *Session {
	s := &Session{
		dispatcher: dispatcher,
		timer:      NewSimpleTimer(),
		now:        time.Now,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Verified reports whether the current phone number has been verified.
func (s *Session) Verified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verified
}

// Phone returns the phone number the session is bound to.
func (s *Session) Phone() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phone
}

// CooldownRemaining returns the seconds left before a new code may be requested.
func (s *Session) CooldownRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cooldownRemaining
}

// SetPhone binds the session to a phone number. A changed value resets the
// session to Idle, clears the cooldown, and forces verified back to false:
// phone identity and verification are bound together.
func (s *Session) SetPhone(phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if phone == s.phone {
		return
	}
	slog.Debug("Session.SetPhone: phone changed, resetting session", "was_verified", s.verified)
	s.phone = phone
	s.resetLocked()
}

// resetLocked clears all verification state. Caller must hold s.mu.
func (s *Session) resetLocked() {
	s.state = StateIdle
	s.verified = false
	s.cooldownRemaining = 0
	s.codeRequestedAt = time.Time{}
	if s.tickID != "" {
		_ = s.timer.Cancel(s.tickID)
		s.tickID = ""
	}
}

// RequestCode validates the phone number and asks the dispatcher to send a code.
// While the cooldown is running the call is a no-op that never reaches the
// network; it reports models.ErrCooldownActive so the control layer can surface it.
func (s *Session) RequestCode(ctx context.Context, phone string) error {
	normalized, err := models.NormalizePhone(phone)
	if err != nil {
		slog.Warn("Session.RequestCode: invalid phone", "error", err)
		return err
	}

	s.mu.Lock()
	if phone != s.phone {
		s.phone = phone
		s.resetLocked()
	}
	if s.cooldownRemaining > 0 {
		remaining := s.cooldownRemaining
		s.mu.Unlock()
		slog.Debug("Session.RequestCode: cooldown active, skipping dispatch", "remaining", remaining)
		return models.ErrCooldownActive
	}
	s.mu.Unlock()

	if err := s.dispatcher.SendCode(ctx, normalized); err != nil {
		slog.Error("Session.RequestCode: code dispatch failed", "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateCodeSent
	s.codeRequestedAt = s.now()
	s.cooldownRemaining = CooldownSeconds
	s.scheduleTickLocked()
	slog.Info("Session.RequestCode: code sent", "cooldown", CooldownSeconds)
	return nil
}

// scheduleTickLocked arms the one-second countdown tick. Caller must hold s.mu.
func (s *Session) scheduleTickLocked() {
	id, err := s.timer.ScheduleAfter(time.Second, s.tick)
	if err != nil {
		slog.Error("Session.scheduleTickLocked: failed to schedule cooldown tick", "error", err)
		return
	}
	s.tickID = id
}

// tick decrements the cooldown once per second. Reaching zero while still in
// CodeSent allows a resend by dropping back to Idle; a Verified session keeps
// its state.
func (s *Session) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cooldownRemaining == 0 {
		return
	}
	s.cooldownRemaining--
	if s.cooldownRemaining > 0 {
		s.scheduleTickLocked()
		return
	}
	s.tickID = ""
	if s.state == StateCodeSent {
		slog.Debug("Session.tick: cooldown expired, resend allowed")
		s.state = StateIdle
	}
}

// VerifyCode checks a 6-digit code with the dispatcher. On a server-confirmed
// match the session becomes Verified; on mismatch it stays in CodeSent and the
// user may retry without re-requesting a code.
func (s *Session) VerifyCode(ctx context.Context, code string) error {
	if !models.IsValidCode(code) {
		slog.Warn("Session.VerifyCode: malformed code")
		return models.ErrInvalidCode
	}

	s.mu.Lock()
	if s.state == StateIdle && s.codeRequestedAt.IsZero() {
		s.mu.Unlock()
		return ErrNoCodeRequested
	}
	phone := s.phone
	s.mu.Unlock()

	normalized, err := models.NormalizePhone(phone)
	if err != nil {
		return err
	}

	if err := s.dispatcher.VerifyCode(ctx, normalized, code); err != nil {
		slog.Warn("Session.VerifyCode: verification failed", "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The phone may have changed while the verify call was in flight; a stale
	// confirmation must not verify the new number.
	if s.phone != phone {
		slog.Warn("Session.VerifyCode: phone changed during verification, discarding result")
		return ErrNoCodeRequested
	}
	s.state = StateVerified
	s.verified = true
	slog.Info("Session.VerifyCode: phone verified")
	return nil
}

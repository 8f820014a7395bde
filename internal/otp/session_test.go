package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohammadamiw/salamatlab-sub001/internal/models"
)

// fakeTimer collects scheduled ticks and fires them on demand so tests can
// advance virtual time deterministically.
type fakeTimer struct {
	pending []func()
	nextID  int
}

func (t *fakeTimer) ScheduleAfter(delay time.Duration, fn func()) (string, error) {
	t.nextID++
	t.pending = append(t.pending, fn)
	return "fake", nil
}

func (t *fakeTimer) Cancel(id string) error {
	t.pending = nil
	return nil
}

// fire runs every currently pending tick exactly once.
func (t *fakeTimer) fire() {
	pending := t.pending
	t.pending = nil
	for _, fn := range pending {
		fn()
	}
}

// fireN advances the countdown by n seconds.
func (t *fakeTimer) fireN(n int) {
	for i := 0; i < n; i++ {
		t.fire()
	}
}

// fakeDispatcher records calls and accepts a single configured code.
type fakeDispatcher struct {
	sendCalls   int
	verifyCalls int
	sendErr     error
	correctCode string
}

func (d *fakeDispatcher) SendCode(ctx context.Context, phone string) error {
	d.sendCalls++
	return d.sendErr
}

func (d *fakeDispatcher) VerifyCode(ctx context.Context, phone, code string) error {
	d.verifyCalls++
	if code != d.correctCode {
		return models.ErrCodeMismatch
	}
	return nil
}

func newTestSession(t *testing.T) (*Session, *fakeDispatcher, *fakeTimer) {
	t.Helper()
	dispatcher := &fakeDispatcher{correctCode: "123456"}
	timer := &fakeTimer{}
	session := NewSession(dispatcher, WithTimer(timer))
	return session, dispatcher, timer
}

func TestRequestCodeRejectsInvalidPhone(t *testing.T) {
	session, dispatcher, _ := newTestSession(t)
	err := session.RequestCode(context.Background(), "12345")
	if !errors.Is(err, models.ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone, got %v", err)
	}
	if dispatcher.sendCalls != 0 {
		t.Errorf("invalid phone must not reach the network, got %d calls", dispatcher.sendCalls)
	}
	if session.State() != StateIdle {
		t.Errorf("expected session to stay Idle, got %s", session.State())
	}
}

func TestSendVerifyScenario(t *testing.T) {
	session, dispatcher, _ := newTestSession(t)
	ctx := context.Background()

	if err := session.RequestCode(ctx, "09123456789"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.State() != StateCodeSent {
		t.Fatalf("expected CodeSent, got %s", session.State())
	}
	if got := session.CooldownRemaining(); got != 120 {
		t.Fatalf("expected cooldown 120, got %d", got)
	}

	// Wrong code keeps the session retryable.
	err := session.VerifyCode(ctx, "000000")
	if !errors.Is(err, models.ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}
	if session.State() != StateCodeSent || session.Verified() {
		t.Fatalf("failed verify must keep CodeSent/unverified, got %s verified=%v", session.State(), session.Verified())
	}

	// Correct code verifies without re-requesting.
	if err := session.VerifyCode(ctx, "123456"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.State() != StateVerified || !session.Verified() {
		t.Fatalf("expected Verified, got %s verified=%v", session.State(), session.Verified())
	}
	if dispatcher.sendCalls != 1 || dispatcher.verifyCalls != 2 {
		t.Errorf("unexpected call counts: send=%d verify=%d", dispatcher.sendCalls, dispatcher.verifyCalls)
	}
}

func TestRequestCodeDuringCooldownIsNoOp(t *testing.T) {
	session, dispatcher, _ := newTestSession(t)
	ctx := context.Background()

	if err := session.RequestCode(ctx, "09123456789"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := session.RequestCode(ctx, "09123456789")
	if !errors.Is(err, models.ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}
	if dispatcher.sendCalls != 1 {
		t.Errorf("cooldown request must not reach the network, got %d calls", dispatcher.sendCalls)
	}
	if session.State() != StateCodeSent || session.CooldownRemaining() != 120 {
		t.Errorf("session state changed by blocked request: %s remaining=%d", session.State(), session.CooldownRemaining())
	}
}

func TestCooldownCountdownAllowsResend(t *testing.T) {
	session, dispatcher, timer := newTestSession(t)
	ctx := context.Background()

	if err := session.RequestCode(ctx, "09123456789"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	timer.fireN(119)
	if got := session.CooldownRemaining(); got != 1 {
		t.Fatalf("expected 1 second remaining, got %d", got)
	}
	if session.State() != StateCodeSent {
		t.Fatalf("expected CodeSent while cooling down, got %s", session.State())
	}

	timer.fire()
	if got := session.CooldownRemaining(); got != 0 {
		t.Fatalf("expected cooldown expired, got %d", got)
	}
	if session.State() != StateIdle {
		t.Fatalf("expected Idle after expiry, got %s", session.State())
	}

	if err := session.RequestCode(ctx, "09123456789"); err != nil {
		t.Fatalf("resend after expiry should succeed, got %v", err)
	}
	if dispatcher.sendCalls != 2 {
		t.Errorf("expected 2 dispatches, got %d", dispatcher.sendCalls)
	}
}

func TestCooldownKeepsVerifiedState(t *testing.T) {
	session, _, timer := newTestSession(t)
	ctx := context.Background()

	if err := session.RequestCode(ctx, "09123456789"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := session.VerifyCode(ctx, "123456"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	timer.fireN(120)
	if session.State() != StateVerified || !session.Verified() {
		t.Errorf("cooldown expiry must not downgrade Verified, got %s", session.State())
	}
}

func TestPhoneChangeResetsVerification(t *testing.T) {
	session, _, _ := newTestSession(t)
	ctx := context.Background()

	if err := session.RequestCode(ctx, "09123456789"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := session.VerifyCode(ctx, "123456"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !session.Verified() {
		t.Fatal("expected verified session")
	}

	// The reset is observable immediately, before any new verify call.
	session.SetPhone("09350000000")
	if session.Verified() {
		t.Error("phone change must force verified=false")
	}
	if session.State() != StateIdle {
		t.Errorf("phone change must reset to Idle, got %s", session.State())
	}
	if session.CooldownRemaining() != 0 {
		t.Errorf("phone change must clear cooldown, got %d", session.CooldownRemaining())
	}

	// Setting the same value again is not a change.
	session.SetPhone("09350000000")
	if session.State() != StateIdle {
		t.Errorf("unexpected state after identical SetPhone: %s", session.State())
	}
}

func TestVerifyWithoutRequestedCode(t *testing.T) {
	session, dispatcher, _ := newTestSession(t)
	session.SetPhone("09123456789")
	err := session.VerifyCode(context.Background(), "123456")
	if !errors.Is(err, ErrNoCodeRequested) {
		t.Fatalf("expected ErrNoCodeRequested, got %v", err)
	}
	if dispatcher.verifyCalls != 0 {
		t.Errorf("verify without a sent code must not reach the network, got %d calls", dispatcher.verifyCalls)
	}
}

func TestVerifyRejectsMalformedCode(t *testing.T) {
	session, dispatcher, _ := newTestSession(t)
	ctx := context.Background()
	if err := session.RequestCode(ctx, "09123456789"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := session.VerifyCode(ctx, "12ab56")
	if !errors.Is(err, models.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	if dispatcher.verifyCalls != 0 {
		t.Errorf("malformed code must not reach the network, got %d calls", dispatcher.verifyCalls)
	}
}

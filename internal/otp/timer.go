// Package otp provides timer plumbing for the verification cooldown countdown.
package otp

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Timer defines the interface for scheduling delayed actions. An injectable
// implementation lets tests advance the cooldown deterministically.
type Timer interface {
	// ScheduleAfter schedules a function to run after a delay and returns a timer ID.
	ScheduleAfter(delay time.Duration, fn func()) (string, error)

	// Cancel cancels a scheduled function by ID.
	Cancel(id string) error
}

// SimpleTimer implements the Timer interface using Go's standard time package.
type SimpleTimer struct {
	timers map[string]*time.Timer
	mu     sync.Mutex
	nextID int64
}

// NewSimpleTimer creates a new SimpleTimer.
func NewSimpleTimer() *SimpleTimer {
	return &SimpleTimer{timers: make(map[string]*time.Timer)}
}

// ScheduleAfter schedules a function to run after a delay.
func (t *SimpleTimer) ScheduleAfter(delay time.Duration, fn func()) (string, error) {
	t.mu.Lock()
	t.nextID++
	id := fmt.Sprintf("timer_%d", t.nextID)
	t.mu.Unlock()

	timer := time.AfterFunc(delay, func() {
		fn()
		t.mu.Lock()
		delete(t.timers, id)
		t.mu.Unlock()
	})

	t.mu.Lock()
	t.timers[id] = timer
	t.mu.Unlock()

	slog.Debug("SimpleTimer.ScheduleAfter: timer scheduled", "id", id, "delay", delay)
	return id, nil
}

// Cancel cancels a scheduled function by ID. Cancelling an unknown ID is a no-op.
func (t *SimpleTimer) Cancel(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, exists := t.timers[id]; exists {
		timer.Stop()
		delete(t.timers, id)
		slog.Debug("SimpleTimer.Cancel: timer cancelled", "id", id)
	}
	return nil
}

// Stop cancels all scheduled timers.
func (t *SimpleTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
	slog.Debug("SimpleTimer.Stop: all timers stopped")
}

// Package notify sends best-effort SMS notifications after a successful
// submission. Delivery failures are logged and discarded: they never downgrade
// an already-successful submission outcome.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/mohammadamiw/salamatlab-sub001/internal/models"
	"github.com/mohammadamiw/salamatlab-sub001/internal/sms"
)

// DefaultOpsPhone is the operations team number receiving request summaries.
const DefaultOpsPhone = "09215679903"

// Notifier is the post-success notification hook consumed by the pipeline.
type Notifier interface {
	// Dispatch fires the post-submission notifications. It never returns an
	// error; delivery failures are logged and discarded.
	Dispatch(ctx context.Context, payload models.SubmissionPayload)
}

// Dispatcher fans a successful submission out to the requester and the
// operations team.
type Dispatcher struct {
	sender   sms.Sender
	opsPhone string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithOpsPhone overrides the operations team phone number.
func WithOpsPhone(phone string) Option {
	return func(d *Dispatcher) { d.opsPhone = phone }
}

// NewDispatcher creates a dispatcher delivering through sender.
func NewDispatcher(sender sms.Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{sender: sender, opsPhone: DefaultOpsPhone}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch sends the confirmation and the ops summary. The two messages carry
// no data dependency and run concurrently; each is attempted exactly once.
// Dispatch returns after both attempts have finished.
func (d *Dispatcher) Dispatch(ctx context.Context, payload models.SubmissionPayload) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		to := payload.PersonalInfo.Phone
		if to == "" {
			return
		}
		if err := d.sender.SendSMS(ctx, to, confirmationMessage(payload)); err != nil {
			slog.Warn("Dispatcher.Dispatch: requester confirmation failed", "error", err)
		}
	}()

	go func() {
		defer wg.Done()
		if err := d.sender.SendSMS(ctx, d.opsPhone, opsMessage(payload)); err != nil {
			slog.Warn("Dispatcher.Dispatch: ops notification failed", "error", err)
		}
	}()

	wg.Wait()
	slog.Debug("Dispatcher.Dispatch: notification fan-out finished")
}

// confirmationMessage builds the requester confirmation text.
func confirmationMessage(payload models.SubmissionPayload) string {
	return fmt.Sprintf("Dear %s, your home sampling request has been registered. Our staff will contact you shortly.\nSalamatLab",
		strings.TrimSpace(payload.PersonalInfo.FullName))
}

// opsMessage builds the operations summary, including a map link when a
// geolocation pick is present.
func opsMessage(payload models.SubmissionPayload) string {
	lines := []string{
		"New home sampling request",
		"Title: " + payload.Title,
		"Name: " + strings.TrimSpace(payload.PersonalInfo.FullName),
		"Phone: " + payload.PersonalInfo.Phone,
		"City: " + payload.PersonalInfo.City,
	}
	if loc := payload.AddressInfo.Geolocation; loc != nil {
		lines = append(lines, "Location: "+MapsLink(loc.Lat, loc.Lng))
	}
	return strings.Join(lines, "\n")
}

// MapsLink formats a Google Maps link for a coordinate pair.
func MapsLink(lat, lng float64) string {
	return fmt.Sprintf("https://maps.google.com/?q=%s,%s",
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lng, 'f', -1, 64))
}

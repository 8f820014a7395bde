// Package submit implements the two-stage submission pipeline: an optional
// authenticated primary endpoint tried first, and a local fallback endpoint
// used when the primary is unconfigured or rejects the request.
package submit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mohammadamiw/salamatlab-sub001/internal/models"
	"github.com/mohammadamiw/salamatlab-sub001/internal/notify"
)

// Pipeline assembles a payload from a finished draft and drives it through
// the endpoint chain. One pipeline serves one wizard; concurrent Submit calls
// are rejected while an earlier one is still in flight.
type Pipeline struct {
	mu       sync.Mutex
	inFlight bool

	primary  Endpoint // nil when no primary endpoint is configured
	fallback Endpoint
	uploader Uploader
	notifier notify.Notifier
}

// Opts holds optional collaborators for a Pipeline.
type Opts struct {
	Primary  Endpoint
	Uploader Uploader
	Notifier notify.Notifier
}

// Option configures a Pipeline.
type Option func(*Opts)

// WithPrimary sets the optional remote endpoint tried before the fallback.
func WithPrimary(primary Endpoint) Option {
	return func(o *Opts) { o.Primary = primary }
}

// WithUploader sets the collaborator that turns paper prescription files into URLs.
func WithUploader(uploader Uploader) Option {
	return func(o *Opts) { o.Uploader = uploader }
}

// WithNotifier sets the post-success notification hook.
func WithNotifier(notifier notify.Notifier) Option {
	return func(o *Opts) { o.Notifier = notifier }
}

// NewPipeline creates a pipeline that always has the fallback endpoint and
// picks up the optional collaborators from opts.
func NewPipeline(fallback Endpoint, opts ...Option) *Pipeline {
	o := &Opts{}
	for _, opt := range opts {
		opt(o)
	}
	return &Pipeline{
		primary:  o.Primary,
		fallback: fallback,
		uploader: o.Uploader,
		notifier: o.Notifier,
	}
}

// Submit validates the draft, assembles the payload, and drives it through the
// endpoint chain: primary first when configured, fallback when the primary is
// absent or rejects. The fallback is never called after a primary acceptance,
// and it is called at most once per Submit.
//
// On success the draft is reset and notifications fire asynchronously; on
// failure the draft is left untouched so the requester can retry.
func (p *Pipeline) Submit(ctx context.Context, draft *models.RequestDraft) (models.SubmissionResult, error) {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return models.SubmissionResult{}, models.ErrSubmissionInFlight
	}
	p.inFlight = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	// Re-run the full guard chain before any network traffic. A draft that
	// bypassed the wizard must not reach the endpoints.
	if err := draft.SubmitReady(); err != nil {
		slog.Warn("Pipeline.Submit: draft rejected before submission", "error", err)
		return models.SubmissionResult{}, err
	}

	payload, err := p.assemblePayload(ctx, draft)
	if err != nil {
		return models.SubmissionResult{}, err
	}

	result, err := p.deliver(ctx, payload)
	if err != nil {
		return result, err
	}

	draft.Reset()
	if p.notifier != nil {
		go p.notifier.Dispatch(context.WithoutCancel(ctx), payload)
	}
	slog.Info("Pipeline.Submit: request accepted", "endpoint", result.EndpointUsed, "type", payload.Type)
	return result, nil
}

// assemblePayload builds the submission payload for whichever branch the draft
// took, uploading paper prescription files first when an uploader is wired.
func (p *Pipeline) assemblePayload(ctx context.Context, draft *models.RequestDraft) (models.SubmissionPayload, error) {
	payload := models.SubmissionPayload{
		PersonalInfo: draft.PersonalInfo,
		AddressInfo:  draft.AddressInfo,
	}

	if draft.PrescriptionPath == models.PathNoPrescription {
		payload.Type = models.SubmissionTypePackage
		payload.SelectedPackage = draft.SelectedPackage
		payload.Title = "Home sampling - " + draft.SelectedPackage.Title
		return payload, nil
	}

	payload.Type = models.SubmissionTypePrescription
	payload.Title = "Home sampling with doctor's prescription"
	payload.PrescriptionType = draft.PrescriptionInfo.Type
	payload.ElectronicCode = draft.PrescriptionInfo.ElectronicCode

	if draft.PrescriptionInfo.Type == models.PrescriptionPaper && p.uploader != nil {
		urls, err := p.uploader.Upload(ctx, draft.PrescriptionInfo.Files)
		if err != nil {
			// The upload is best effort: the booking still goes through and
			// the files are collected out of band by the operations team.
			slog.Warn("Pipeline.Submit: prescription upload failed", "error", err)
		} else {
			payload.PrescriptionURLs = urls
		}
	}
	return payload, nil
}

// deliver walks the endpoint chain and maps the outcome to a SubmissionResult.
func (p *Pipeline) deliver(ctx context.Context, payload models.SubmissionPayload) (models.SubmissionResult, error) {
	if p.primary != nil {
		err := p.primary.Submit(ctx, payload)
		if err == nil {
			return models.SubmissionResult{EndpointUsed: models.EndpointPrimary, Success: true}, nil
		}
		slog.Warn("Pipeline.Submit: primary endpoint failed, trying fallback", "error", err)
	}

	if err := p.fallback.Submit(ctx, payload); err != nil {
		result := models.SubmissionResult{
			EndpointUsed:  models.EndpointFallback,
			Success:       false,
			ServerMessage: err.Error(),
		}
		return result, fmt.Errorf("%w: %s", models.ErrSubmissionFailed, err.Error())
	}
	return models.SubmissionResult{EndpointUsed: models.EndpointFallback, Success: true}, nil
}

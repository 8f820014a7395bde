// Package wizard orchestrates the gated multi-step intake sequence.
//
// The three steps are declared as tagged step definitions, each carrying its own
// guard and successor, so guard logic stays centralized and testable instead of
// being spread through positional conditionals. Backward navigation is always
// permitted and never clears entered data.
package wizard

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mohammadamiw/salamatlab-sub001/internal/catalog"
	"github.com/mohammadamiw/salamatlab-sub001/internal/models"
	"github.com/mohammadamiw/salamatlab-sub001/internal/otp"
)

// Step is a wizard position.
type Step int

const (
	// StepIntake is the prescription-path decision plus branch payload. On the
	// has-prescription branch it also collects personal details, collapsing the
	// next step into this one.
	StepIntake Step = 1
	// StepPersonal collects personal details; only reachable without a prescription.
	StepPersonal Step = 2
	// StepAddress collects the address and map pick and precedes submission.
	StepAddress Step = 3
)

// ErrAtFinalStep is returned by Advance on the address step; from there the
// only forward action is submission.
var ErrAtFinalStep = errors.New("already at the final step")

// stepDef is a tagged step definition: the guard that must pass to leave the
// step forward, and the branch-aware successor and predecessor.
type stepDef struct {
	guard func(*models.RequestDraft) error
	next  func(*models.RequestDraft) (Step, error)
	prev  func(*models.RequestDraft) Step
}

var steps = map[Step]stepDef{
	StepIntake: {
		guard: (*models.RequestDraft).IntakeComplete,
		next: func(d *models.RequestDraft) (Step, error) {
			if d.PrescriptionPath == models.PathHasPrescription {
				return StepAddress, nil
			}
			return StepPersonal, nil
		},
		prev: func(d *models.RequestDraft) Step { return StepIntake },
	},
	StepPersonal: {
		guard: (*models.RequestDraft).PersonalComplete,
		next: func(d *models.RequestDraft) (Step, error) { return StepAddress, nil },
		prev: func(d *models.RequestDraft) Step { return StepIntake },
	},
	StepAddress: {
		guard: (*models.RequestDraft).AddressComplete,
		next: func(d *models.RequestDraft) (Step, error) { return 0, ErrAtFinalStep },
		prev: func(d *models.RequestDraft) Step {
			if d.PrescriptionPath == models.PathHasPrescription {
				return StepIntake
			}
			return StepPersonal
		},
	},
}

// Controller owns the request draft and its verification session and evaluates
// transition guards for the presentation layer.
type Controller struct {
	mu      sync.Mutex
	draft   *models.RequestDraft
	session *otp.Session
}

// NewController creates a controller over an empty draft.
func NewController(session *otp.Session) *Controller {
	return &Controller{
		draft:   models.NewRequestDraft(),
		session: session,
	}
}

// Draft exposes the draft under construction. The phone field must be mutated
// through SetPhone so verification stays bound to the phone identity; other
// fields may be written directly by the presentation layer.
func (c *Controller) Draft() *models.RequestDraft {
	return c.draft
}

// Session exposes the verification session for cooldown display.
func (c *Controller) Session() *otp.Session {
	return c.session
}

// Step returns the current wizard position.
func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Step(c.draft.Step)
}

// SetPrescriptionPath declares the intake branch.
func (c *Controller) SetPrescriptionPath(path models.PrescriptionPath) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.PrescriptionPath = path
}

// SelectPackage selects one catalog package, replacing any prior selection.
// At most one package is selected at a time.
func (c *Controller) SelectPackage(category catalog.CategoryKey, index int) error {
	ref, err := catalog.Ref(category, index)
	if err != nil {
		slog.Warn("Controller.SelectPackage: invalid selection", "error", err, "category", category, "index", index)
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.SelectedPackage = ref
	slog.Debug("Controller.SelectPackage: package selected", "category", category, "index", index, "title", ref.Title)
	return nil
}

// ClearPackageSelection drops the current package selection, as when the user
// switches catalog categories.
func (c *Controller) ClearPackageSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.SelectedPackage = nil
}

// SetPhone updates the phone number. Any change immediately invalidates the
// verification state, before any verify call could observe it.
func (c *Controller) SetPhone(phone string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if phone == c.draft.PersonalInfo.Phone {
		return
	}
	c.draft.PersonalInfo.Phone = phone
	c.draft.PersonalInfo.PhoneVerified = false
	c.session.SetPhone(phone)
}

// RequestCode asks the verification session to dispatch a code to the draft's phone.
func (c *Controller) RequestCode(ctx context.Context) error {
	return c.session.RequestCode(ctx, c.draft.PersonalInfo.Phone)
}

// VerifyCode checks a code with the verification session and mirrors the
// verified flag into the draft.
func (c *Controller) VerifyCode(ctx context.Context, code string) error {
	if err := c.session.VerifyCode(ctx, code); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.PersonalInfo.PhoneVerified = true
	return nil
}

// syncVerifiedLocked mirrors the session's verified flag into the draft before
// a guard is evaluated. Caller must hold c.mu.
func (c *Controller) syncVerifiedLocked() {
	c.draft.PersonalInfo.PhoneVerified = c.session.Verified()
}

// CanAdvance reports whether the current step's guard passes.
func (c *Controller) CanAdvance() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncVerifiedLocked()
	def := steps[Step(c.draft.Step)]
	return def.guard(c.draft) == nil
}

// Advance moves to the next step when the current guard passes. A failing guard
// leaves the step unchanged and reports why.
func (c *Controller) Advance() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncVerifiedLocked()

	current := Step(c.draft.Step)
	def := steps[current]
	if err := def.guard(c.draft); err != nil {
		slog.Debug("Controller.Advance: guard blocked transition", "step", current, "error", err)
		return err
	}
	next, err := def.next(c.draft)
	if err != nil {
		return err
	}
	c.draft.Step = int(next)
	slog.Info("Controller.Advance: step advanced", "from", current, "to", next)
	return nil
}

// Back moves to the previous step. No guard blocks going back and no data is cleared.
func (c *Controller) Back() {
	c.mu.Lock()
	defer c.mu.Unlock()
	current := Step(c.draft.Step)
	prev := steps[current].prev(c.draft)
	c.draft.Step = int(prev)
	slog.Debug("Controller.Back: step moved back", "from", current, "to", prev)
}

// CanSubmit re-checks everything submission relies on, independent of step
// entry guards.
func (c *Controller) CanSubmit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncVerifiedLocked()
	return c.draft.SubmitReady()
}

// Cancel discards the draft and verification state entirely.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Reset()
	c.session.SetPhone("")
	slog.Info("Controller.Cancel: draft discarded")
}

package application

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/idview/core"
)

// Wizard is the linear, 5 steps ID application form controller.
// It is safe for concurrent use; every mutation is rejected while a submission is in flight.
type Wizard struct {
	mu          sync.Mutex
	step        StepIndex
	draft       Draft
	errs        ValidationErrors
	submitting  bool
	submitErr   string
	notice      string
	submitter   Submitter
	maxFileSize int64
}

// State is a read-only snapshot of a Wizard.
type State struct {
	Step        StepIndex        `json:"step"`
	StepCount   int              `json:"step_count"`
	Draft       Draft            `json:"draft"`
	Errors      ValidationErrors `json:"errors"`
	Submitting  bool             `json:"submitting"`
	SubmitError string           `json:"submit_error,omitempty"`
	Notice      string           `json:"notice,omitempty"`
	Current     StepView         `json:"current"`
}

// NewWizard returns a wizard on its first step with an empty draft.
// maxFileSize <= 0 means DefaultMaxFileSize.
func NewWizard(submitter Submitter, maxFileSize int64) *Wizard {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Wizard{
		step:        FirstStep,
		errs:        make(ValidationErrors),
		submitter:   submitter,
		maxFileSize: maxFileSize,
	}
}

// mutate runs fn under lock unless a submission is in flight.
func (w *Wizard) mutate(fn func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitting {
		return ErrSubmitInFlight
	}
	w.notice = ""
	return fn()
}

// Step returns the current step index.
func (w *Wizard) Step() StepIndex {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Submitting reports whether a submission is in flight.
func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// State returns a snapshot of the wizard, along with the rendered current step.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Step:        w.step,
		StepCount:   len(Steps),
		Draft:       w.draft,
		Errors:      w.errs.clone(),
		Submitting:  w.submitting,
		SubmitError: w.submitErr,
		Notice:      w.notice,
		Current:     StepAt(w.step).Render(w.draft),
	}
}

// SetField edits the text field `name`. Only that field's error is cleared.
// Values are trimmed, so a whitespace only value leaves the field empty.
// Values holding HTML markup are rejected with a core.ValidationError and the field is left as is.
func (w *Wizard) SetField(name, value string) error {
	return w.mutate(func() error {
		if _, err := w.draft.Get(name); err != nil {
			return err
		}
		clean := core.SanitizeString(value)
		if clean != core.CleanString(value) {
			msg := fieldLabels[name] + " must not contain HTML"
			w.errs[name] = msg
			return core.NewValidationError(ErrMarkup, core.FieldError{Field: name, Error: msg})
		}
		if err := w.draft.Set(name, clean); err != nil {
			return err
		}
		delete(w.errs, name)
		return nil
	})
}

// SetFile attaches `f` to the document field `name`.
// Files of a type or size the field does not accept are rejected with a core.ValidationError.
func (w *Wizard) SetFile(name string, f *File) error {
	if f == nil {
		return w.ClearFile(name)
	}
	return w.mutate(func() error {
		if _, err := w.draft.File(name); err != nil {
			return err
		}
		if msg := checkFile(name, f, w.maxFileSize); msg != "" {
			w.errs[name] = msg
			return core.NewValidationError(ErrFileType, core.FieldError{Field: name, Error: msg})
		}
		if err := w.draft.SetFile(name, f); err != nil {
			return err
		}
		delete(w.errs, name)
		return nil
	})
}

// ClearFile detaches the document of field `name`.
func (w *Wizard) ClearFile(name string) error {
	return w.mutate(func() error {
		if err := w.draft.SetFile(name, nil); err != nil {
			return err
		}
		delete(w.errs, name)
		return nil
	})
}

// Advance validates the current step and moves to the next one (up to LastStep).
// On failure the errors are replaced by the current step's and the step does not change.
func (w *Wizard) Advance() error {
	return w.mutate(func() error {
		if errs := StepAt(w.step).Validate(w.draft); len(errs) > 0 {
			w.errs = errs
			return errs.Err()
		}
		w.errs = make(ValidationErrors)
		if w.step < LastStep {
			w.step++
		}
		return nil
	})
}

// Retreat moves to the previous step (down to FirstStep), without validation.
func (w *Wizard) Retreat() error {
	return w.mutate(func() error {
		if w.step > FirstStep {
			w.step--
		}
		return nil
	})
}

// JumpTo moves back to an already visited step. Moving forward requires Advance.
func (w *Wizard) JumpTo(step StepIndex) error {
	return w.mutate(func() error {
		if step < FirstStep || step > w.step {
			return errors.Wrapf(ErrInvalidStep, "cannot jump from step %d to step %d", w.step, step)
		}
		w.step = step
		return nil
	})
}

// Submit sends the whole draft to the submission endpoint. Only allowed on the review step.
// The documents step is validated again first. On success the wizard is reset to its first step
// with an empty draft; on failure a *SubmissionError is returned and the wizard is left untouched.
func (w *Wizard) Submit(ctx context.Context) (Receipt, error) {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return Receipt{}, ErrSubmitInFlight
	}
	if w.step != LastStep {
		w.mu.Unlock()
		return Receipt{}, ErrNotReviewing
	}
	if errs := (DocumentsStep{}).Validate(w.draft); len(errs) > 0 {
		w.errs = errs
		w.mu.Unlock()
		return Receipt{}, errs.Err()
	}
	payload := w.draft.Payload()
	submitter := w.submitter
	w.submitting = true
	w.submitErr = ""
	w.notice = ""
	w.mu.Unlock()

	receipt, err := submitter.SubmitApplication(ctx, payload)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if err != nil {
		w.submitErr = SubmissionErrorMessage
		return Receipt{}, &SubmissionError{Err: err}
	}

	if receipt.Message == "" {
		receipt.Message = SubmissionSuccessMessage
	}
	w.draft = Draft{}
	w.errs = make(ValidationErrors)
	w.step = FirstStep
	w.notice = receipt.Message
	return receipt, nil
}

package application

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/idview/core"
)

var requiredFields = map[StepIndex][]string{
	StepPersonal:  {FieldFirstName, FieldLastName, FieldAdmissionNumber, FieldNationalID, FieldEmail, FieldPhone, FieldDateOfBirth, FieldGender},
	StepAcademic:  {FieldDepartment, FieldCourse, FieldYearOfStudy, FieldExpectedGraduation},
	StepContact:   {FieldPermanentAddress, FieldCurrentAddress, FieldNextOfKinName, FieldNextOfKinPhone, FieldNextOfKinRelationship},
	StepDocuments: {FieldPassportPhoto, FieldNationalIDCopy, FieldAdmissionLetter},
}

// fill fills the wizard's step through its public API.
func fill(t *testing.T, w *Wizard, step StepIndex) {
	t.Helper()
	var d Draft
	FillStep(&d, step)
	for _, name := range requiredFields[step] {
		if f, err := d.File(name); err == nil {
			require.NoError(t, w.SetFile(name, f))
			continue
		}
		val, _ := d.Get(name)
		require.NoError(t, w.SetField(name, val))
	}
}

// walkToReview fills & advances through every step up to the review step.
func walkToReview(t *testing.T, w *Wizard) {
	t.Helper()
	for step := FirstStep; step < LastStep; step++ {
		fill(t, w, step)
		require.NoError(t, w.Advance())
	}
	require.Equal(t, StepReview, w.Step())
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "want *core.ValidationError, got %T", err)
	return vErr.FieldMap()
}

func TestWizard_AdvanceEmptyFirstStep(t *testing.T) {
	w := NewWizard(&SubmitterMock{}, 0)

	err := w.Advance()
	require.Error(t, err)

	state := w.State()
	assert.Equal(t, StepPersonal, state.Step)
	assert.Len(t, state.Errors, 8)
	assert.Equal(t, "First name is required", state.Errors[FieldFirstName])
	assert.Equal(t, "Phone number is required", state.Errors[FieldPhone])
	assert.Equal(t, state.Errors, ValidationErrors(fieldErrors(t, err)))
}

func TestWizard_AdvanceFilledFirstStep(t *testing.T) {
	w := NewWizard(&SubmitterMock{}, 0)
	fill(t, w, StepPersonal)

	require.NoError(t, w.Advance())

	state := w.State()
	assert.Equal(t, StepAcademic, state.Step)
	assert.Empty(t, state.Errors)
}

func TestWizard_AdvanceFailsIffRequiredFieldMissing(t *testing.T) {
	for step := FirstStep; step < LastStep; step++ {
		for _, missing := range requiredFields[step] {
			step, missing := step, missing
			t.Run(Label(missing), func(t *testing.T) {
				w := NewWizard(&SubmitterMock{}, 0)
				for s := FirstStep; s < step; s++ {
					fill(t, w, s)
					require.NoError(t, w.Advance())
				}
				fill(t, w, step)
				if _, err := w.draft.File(missing); err == nil {
					require.NoError(t, w.ClearFile(missing))
				} else {
					require.NoError(t, w.SetField(missing, ""))
				}

				err := w.Advance()
				require.Error(t, err)
				state := w.State()
				assert.Equal(t, step, state.Step)
				assert.Equal(t, map[string]string{missing: Label(missing) + " is required"}, fieldErrors(t, err))
				assert.Len(t, state.Errors, 1)
			})
		}
	}
}

func TestWizard_AdvanceStopsAtReview(t *testing.T) {
	w := NewWizard(&SubmitterMock{}, 0)
	walkToReview(t, w)

	require.NoError(t, w.Advance())
	assert.Equal(t, StepReview, w.Step())
}

func TestWizard_Retreat(t *testing.T) {
	w := NewWizard(&SubmitterMock{}, 0)

	require.NoError(t, w.Retreat())
	assert.Equal(t, StepPersonal, w.Step(), "retreat from the first step is a no-op")

	walkToReview(t, w)
	for want := StepDocuments; want >= FirstStep; want-- {
		require.NoError(t, w.Retreat())
		assert.Equal(t, want, w.Step())
	}
}

func TestWizard_RetreatSkipsValidation(t *testing.T) {
	w := NewWizard(&SubmitterMock{}, 0)
	fill(t, w, StepPersonal)
	require.NoError(t, w.Advance())

	require.NoError(t, w.SetField(FieldFirstName, ""))
	require.NoError(t, w.Retreat())
	assert.Equal(t, StepPersonal, w.Step())
}

func TestWizard_JumpTo(t *testing.T) {
	w := NewWizard(&SubmitterMock{}, 0)
	walkToReview(t, w)

	require.NoError(t, w.JumpTo(StepAcademic))
	assert.Equal(t, StepAcademic, w.Step())

	tests := []StepIndex{0, StepContact, 6}
	for _, step := range tests {
		err := w.JumpTo(step)
		assert.Equal(t, ErrInvalidStep, errors.Cause(err))
		assert.Equal(t, StepAcademic, w.Step())
	}
}

func TestWizard_EditClearsOnlyThatFieldError(t *testing.T) {
	w := NewWizard(&SubmitterMock{}, 0)
	require.Error(t, w.Advance())

	require.NoError(t, w.SetField(FieldLastName, "Hassan"))

	errs := w.State().Errors
	assert.Len(t, errs, 7)
	assert.NotContains(t, errs, FieldLastName)
	assert.Contains(t, errs, FieldFirstName)
}

func TestWizard_SetField(t *testing.T) {
	w := NewWizard(&SubmitterMock{}, 0)

	require.NoError(t, w.SetField(FieldFirstName, "  Amina "))
	require.NoError(t, w.SetField(FieldLastName, "O'Brien & Sons"))
	require.NoError(t, w.SetField(FieldCurrentAddress, "Room <12>"))
	draft := w.State().Draft
	assert.Equal(t, "Amina", draft.FirstName)
	assert.Equal(t, "O'Brien & Sons", draft.LastName)
	assert.Equal(t, "Room <12>", draft.CurrentAddress)

	assert.Equal(t, ErrUnknownField, errors.Cause(w.SetField("lol", "x")))
	assert.Equal(t, ErrNotText, errors.Cause(w.SetField(FieldPassportPhoto, "x")))
}

func TestWizard_SetFieldRejectsMarkup(t *testing.T) {
	w := NewWizard(&SubmitterMock{}, 0)
	require.NoError(t, w.SetField(FieldPermanentAddress, "Plot 4"))

	for _, value := range []string{"Plot 4 <Block B>", "<b>Amina</b>"} {
		err := w.SetField(FieldPermanentAddress, value)
		assert.Equal(t, map[string]string{FieldPermanentAddress: "Permanent address must not contain HTML"}, fieldErrors(t, err), value)
	}
	state := w.State()
	assert.Equal(t, "Plot 4", state.Draft.PermanentAddress)
	assert.Contains(t, state.Errors, FieldPermanentAddress)

	require.NoError(t, w.SetField(FieldPermanentAddress, "Plot 4, Block B"))
	assert.NotContains(t, w.State().Errors, FieldPermanentAddress)
}

func TestWizard_SetFieldWhitespaceIsEmpty(t *testing.T) {
	w := NewWizard(&SubmitterMock{}, 0)
	d := &Draft{}
	FillStep(d, StepPersonal)
	for _, name := range []string{
		FieldFirstName, FieldLastName, FieldAdmissionNumber, FieldNationalID,
		FieldEmail, FieldPhone, FieldDateOfBirth, FieldGender,
	} {
		v, err := d.Get(name)
		require.NoError(t, err)
		require.NoError(t, w.SetField(name, v))
	}
	require.NoError(t, w.SetField(FieldFirstName, "   "))

	err := w.Advance()
	assert.Equal(t, map[string]string{FieldFirstName: "First name is required"}, fieldErrors(t, err))
	assert.Equal(t, StepPersonal, w.Step())
}

func TestWizard_SetFile(t *testing.T) {
	w := NewWizard(&SubmitterMock{}, 10)

	pdf := &File{Filename: "id.pdf", ContentType: "application/pdf", Size: 4, Content: []byte("%PDF")}
	big := &File{Filename: "big.png", ContentType: "image/png", Size: 11, Content: make([]byte, 11)}

	require.NoError(t, w.SetFile(FieldNationalIDCopy, pdf))

	err := w.SetFile(FieldPassportPhoto, pdf)
	assert.Equal(t, map[string]string{FieldPassportPhoto: "Passport photo must be an image"}, fieldErrors(t, err))

	err = w.SetFile(FieldAdmissionLetter, big)
	assert.Contains(t, fieldErrors(t, err), FieldAdmissionLetter)

	assert.Equal(t, ErrNotAFile, errors.Cause(w.SetFile(FieldFirstName, pdf)))

	state := w.State()
	assert.Equal(t, pdf, state.Draft.NationalIDCopy)
	assert.Nil(t, state.Draft.PassportPhoto)
	assert.Contains(t, state.Errors, FieldPassportPhoto)

	require.NoError(t, w.ClearFile(FieldNationalIDCopy))
	assert.Nil(t, w.State().Draft.NationalIDCopy)
}

func TestWizard_SubmitOutsideReview(t *testing.T) {
	sub := &SubmitterMock{}
	w := NewWizard(sub, 0)

	_, err := w.Submit(context.Background())
	assert.Equal(t, ErrNotReviewing, err)
	assert.Empty(t, sub.Payloads())
}

func TestWizard_SubmitRevalidatesDocuments(t *testing.T) {
	sub := &SubmitterMock{}
	w := NewWizard(sub, 0)
	walkToReview(t, w)
	require.NoError(t, w.ClearFile(FieldAdmissionLetter))

	_, err := w.Submit(context.Background())
	assert.Equal(t, map[string]string{FieldAdmissionLetter: "Admission letter is required"}, fieldErrors(t, err))
	assert.Equal(t, StepReview, w.Step())
	assert.Empty(t, sub.Payloads())
}

func TestWizard_SubmitSuccess(t *testing.T) {
	sub := &SubmitterMock{}
	w := NewWizard(sub, 0)
	walkToReview(t, w)
	want := w.State().Draft.Payload()

	receipt, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SubmissionSuccessMessage, receipt.Message)

	state := w.State()
	assert.Equal(t, StepPersonal, state.Step)
	assert.True(t, state.Draft.IsEmpty())
	assert.Empty(t, state.Errors)
	assert.Equal(t, SubmissionSuccessMessage, state.Notice)
	assert.False(t, state.Submitting)

	payloads := sub.Payloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, want, payloads[0])
	assert.Len(t, payloads[0].Values, 17)
	assert.Len(t, payloads[0].Files, 3)
}

func TestWizard_SubmitFailure(t *testing.T) {
	cause := errors.New("connection refused")
	sub := &SubmitterMock{Err: cause}
	w := NewWizard(sub, 0)
	walkToReview(t, w)
	before := w.State().Draft

	_, err := w.Submit(context.Background())
	require.Error(t, err)
	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, cause, subErr.Err)
	assert.Equal(t, SubmissionErrorMessage, err.Error())

	state := w.State()
	assert.Equal(t, StepReview, state.Step)
	assert.Equal(t, before, state.Draft)
	assert.Equal(t, SubmissionErrorMessage, state.SubmitError)
	assert.False(t, state.Submitting)

	// retry
	sub.Err = nil
	_, err = w.Submit(context.Background())
	require.NoError(t, err)
	assert.Empty(t, w.State().SubmitError)
	assert.Len(t, sub.Payloads(), 2)
}

func TestWizard_SubmitCancelled(t *testing.T) {
	sub := &SubmitterMock{Release: make(chan struct{}), Started: make(chan struct{}, 1)}
	w := NewWizard(sub, 0)
	walkToReview(t, w)
	before := w.State().Draft

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(ctx)
		done <- err
	}()
	<-sub.Started
	cancel()

	err := <-done
	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, context.Canceled, subErr.Err)
	assert.Equal(t, SubmissionErrorMessage, err.Error())

	state := w.State()
	assert.Equal(t, StepReview, state.Step)
	assert.Equal(t, before, state.Draft)
	assert.False(t, state.Submitting)
}

func TestWizard_SubmitInFlight(t *testing.T) {
	sub := &SubmitterMock{Release: make(chan struct{}), Started: make(chan struct{}, 1)}
	w := NewWizard(sub, 0)
	walkToReview(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background())
		done <- err
	}()
	<-sub.Started

	assert.True(t, w.State().Submitting)
	_, err := w.Submit(context.Background())
	assert.Equal(t, ErrSubmitInFlight, err)
	assert.Equal(t, ErrSubmitInFlight, w.Retreat())
	assert.Equal(t, ErrSubmitInFlight, w.SetField(FieldFirstName, "x"))

	close(sub.Release)
	require.NoError(t, <-done)
	assert.Len(t, sub.Payloads(), 1)
	assert.Equal(t, StepPersonal, w.Step())
}

func TestWizard_StateRendersCurrentStep(t *testing.T) {
	w := NewWizard(&SubmitterMock{}, 0)
	fill(t, w, StepPersonal)

	current := w.State().Current
	assert.Equal(t, StepPersonal, current.Index)
	assert.Equal(t, "Personal Info", current.Title)
	require.Len(t, current.Fields, 8)
	assert.Equal(t, FieldFirstName, current.Fields[0].Name)
	assert.Equal(t, "Amina", current.Fields[0].Value)
	assert.True(t, current.Fields[0].Required)

	walkToReviewFrom(t, w, StepPersonal)
	review := w.State().Current
	assert.Equal(t, StepReview, review.Index)
	assert.Len(t, review.Fields, len(FieldNames))
	assert.Nil(t, review.Warnings)

	require.NoError(t, w.SetField(FieldAdmissionNumber, "12345"))
	assert.Contains(t, w.State().Current.Warnings, FieldAdmissionNumber)
}

// walkToReviewFrom is walkToReview for a wizard whose `from` step is already filled.
func walkToReviewFrom(t *testing.T, w *Wizard, from StepIndex) {
	t.Helper()
	for step := from; step < LastStep; step++ {
		if step != from {
			fill(t, w, step)
		}
		require.NoError(t, w.Advance())
	}
}

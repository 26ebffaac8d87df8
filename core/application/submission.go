package application

import (
	"context"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/idview/core"
)

const (
	// SubmissionErrorMessage is the only message surfaced when a submission fails, whatever the cause.
	SubmissionErrorMessage = "Error submitting application. Please try again."
	// SubmissionSuccessMessage is shown after a submission the backend did not comment on.
	SubmissionSuccessMessage = "Application submitted successfully! You will receive an email confirmation shortly."
)

var (
	ErrIncompleteStep = errors.New("please fill in all required fields")
	ErrSubmitInFlight = errors.New("application submission in progress")
	ErrNotReviewing   = errors.New("applications can only be submitted from the review step")
	ErrInvalidStep    = errors.New("invalid step")
)

type (
	// Submitter is the remote endpoint applications are submitted to.
	Submitter interface {
		SubmitApplication(ctx context.Context, p Payload) (Receipt, error)
	}

	// Receipt acknowledges a successful submission.
	Receipt struct {
		Message string `json:"message"`
	}

	// Payload is the assembled set of draft fields sent on submission.
	Payload struct {
		Values map[string]string
		Files  map[string]*File
	}

	// SubmissionError is returned when the submission endpoint fails.
	// No distinction is made between causes: its message is always SubmissionErrorMessage.
	SubmissionError struct {
		Err error
	}

	// ValidationErrors maps field names to their error message.
	ValidationErrors map[string]string
)

func (err *SubmissionError) Error() string { return SubmissionErrorMessage }

func (err *SubmissionError) Unwrap() error { return err.Err }

// Err wraps the errors into a core.ValidationError, nil when there is none.
func (errs ValidationErrors) Err() error {
	if len(errs) == 0 {
		return nil
	}
	flds := make([]core.FieldError, 0, len(errs))
	for _, name := range errs.fieldNames() {
		flds = append(flds, core.FieldError{Field: name, Error: errs[name]})
	}
	return core.NewValidationError(ErrIncompleteStep, flds...)
}

// fieldNames returns the erroneous fields in form order.
func (errs ValidationErrors) fieldNames() []string {
	names := make([]string, 0, len(errs))
	for _, name := range FieldNames {
		if _, ok := errs[name]; ok {
			names = append(names, name)
		}
	}
	if len(names) < len(errs) { // not a Draft field
		var extra []string
		for name := range errs {
			if _, ok := fieldLabels[name]; !ok {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		names = append(names, extra...)
	}
	return names
}

func (errs ValidationErrors) clone() ValidationErrors {
	c := make(ValidationErrors, len(errs))
	for k, v := range errs {
		c[k] = v
	}
	return c
}

// WriteMultipart encodes the payload as multipart/form-data into w, one part per field,
// documents as file parts. It returns the content type to send along.
func (p Payload) WriteMultipart(w io.Writer) (string, error) {
	mw := multipart.NewWriter(w)
	for _, name := range FieldNames {
		if f, ok := p.Files[name]; ok {
			if f == nil {
				continue
			}
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", `form-data; name="`+escapeQuotes(name)+`"; filename="`+escapeQuotes(f.Filename)+`"`)
			h.Set("Content-Type", f.ContentType)
			part, err := mw.CreatePart(h)
			if err != nil {
				return "", errors.Wrap(err, "creating "+name+" part")
			}
			if _, err = io.Copy(part, f.Reader()); err != nil {
				return "", errors.Wrap(err, "writing "+name+" part")
			}
			continue
		}
		if err := mw.WriteField(name, p.Values[name]); err != nil {
			return "", errors.Wrap(err, "writing "+name+" field")
		}
	}
	if err := mw.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart writer")
	}
	return mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

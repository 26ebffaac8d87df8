package application

import (
	"github.com/pkg/errors"
)

// Field names, as sent to the student API.
const (
	// Personal Information
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldAdmissionNumber = "admissionNumber"
	FieldNationalID      = "nationalId"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldDateOfBirth     = "dateOfBirth"
	FieldGender          = "gender"

	// Academic Information
	FieldDepartment         = "department"
	FieldCourse             = "course"
	FieldYearOfStudy        = "yearOfStudy"
	FieldExpectedGraduation = "expectedGraduation"

	// Contact Information
	FieldPermanentAddress      = "permanentAddress"
	FieldCurrentAddress        = "currentAddress"
	FieldNextOfKinName         = "nextOfKinName"
	FieldNextOfKinPhone        = "nextOfKinPhone"
	FieldNextOfKinRelationship = "nextOfKinRelationship"

	// Documents
	FieldPassportPhoto   = "passportPhoto"
	FieldNationalIDCopy  = "nationalIdCopy"
	FieldAdmissionLetter = "admissionLetter"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrNotAFile     = errors.New("field does not hold a document")
	ErrNotText      = errors.New("field holds a document")
	ErrMarkup       = errors.New("field contains markup")

	// FieldNames lists every Draft field in form order.
	FieldNames = []string{
		FieldFirstName, FieldLastName, FieldAdmissionNumber, FieldNationalID,
		FieldEmail, FieldPhone, FieldDateOfBirth, FieldGender,
		FieldDepartment, FieldCourse, FieldYearOfStudy, FieldExpectedGraduation,
		FieldPermanentAddress, FieldCurrentAddress, FieldNextOfKinName,
		FieldNextOfKinPhone, FieldNextOfKinRelationship,
		FieldPassportPhoto, FieldNationalIDCopy, FieldAdmissionLetter,
	}
)

type PersonalInfo struct {
	FirstName       string `json:"firstName" validate:"required"`
	LastName        string `json:"lastName" validate:"required"`
	AdmissionNumber string `json:"admissionNumber" validate:"required"`
	NationalID      string `json:"nationalId" validate:"required"`
	Email           string `json:"email" validate:"required"`
	Phone           string `json:"phone" validate:"required"`
	DateOfBirth     string `json:"dateOfBirth" validate:"required"`
	Gender          string `json:"gender" validate:"required"`
}

type AcademicInfo struct {
	Department         string `json:"department" validate:"required"`
	Course             string `json:"course" validate:"required"`
	YearOfStudy        string `json:"yearOfStudy" validate:"required"`
	ExpectedGraduation string `json:"expectedGraduation" validate:"required"`
}

type ContactInfo struct {
	PermanentAddress      string `json:"permanentAddress" validate:"required"`
	CurrentAddress        string `json:"currentAddress" validate:"required"`
	NextOfKinName         string `json:"nextOfKinName" validate:"required"`
	NextOfKinPhone        string `json:"nextOfKinPhone" validate:"required"`
	NextOfKinRelationship string `json:"nextOfKinRelationship" validate:"required"`
}

type Documents struct {
	PassportPhoto   *File `json:"passportPhoto" validate:"required"`
	NationalIDCopy  *File `json:"nationalIdCopy" validate:"required"`
	AdmissionLetter *File `json:"admissionLetter" validate:"required"`
}

// Draft is the in-progress, unsaved application held by a Wizard.
// The zero value is an empty draft.
type Draft struct {
	PersonalInfo
	AcademicInfo
	ContactInfo
	Documents
}

func (d *Draft) text(name string) (*string, error) {
	switch name {
	case FieldFirstName:
		return &d.FirstName, nil
	case FieldLastName:
		return &d.LastName, nil
	case FieldAdmissionNumber:
		return &d.AdmissionNumber, nil
	case FieldNationalID:
		return &d.NationalID, nil
	case FieldEmail:
		return &d.Email, nil
	case FieldPhone:
		return &d.Phone, nil
	case FieldDateOfBirth:
		return &d.DateOfBirth, nil
	case FieldGender:
		return &d.Gender, nil
	case FieldDepartment:
		return &d.Department, nil
	case FieldCourse:
		return &d.Course, nil
	case FieldYearOfStudy:
		return &d.YearOfStudy, nil
	case FieldExpectedGraduation:
		return &d.ExpectedGraduation, nil
	case FieldPermanentAddress:
		return &d.PermanentAddress, nil
	case FieldCurrentAddress:
		return &d.CurrentAddress, nil
	case FieldNextOfKinName:
		return &d.NextOfKinName, nil
	case FieldNextOfKinPhone:
		return &d.NextOfKinPhone, nil
	case FieldNextOfKinRelationship:
		return &d.NextOfKinRelationship, nil
	case FieldPassportPhoto, FieldNationalIDCopy, FieldAdmissionLetter:
		return nil, errors.Wrap(ErrNotText, name)
	}
	return nil, errors.Wrap(ErrUnknownField, name)
}

func (d *Draft) file(name string) (**File, error) {
	switch name {
	case FieldPassportPhoto:
		return &d.PassportPhoto, nil
	case FieldNationalIDCopy:
		return &d.NationalIDCopy, nil
	case FieldAdmissionLetter:
		return &d.AdmissionLetter, nil
	}
	if _, err := d.text(name); err == nil {
		return nil, errors.Wrap(ErrNotAFile, name)
	}
	return nil, errors.Wrap(ErrUnknownField, name)
}

// Get returns the value of the text field `name`.
func (d Draft) Get(name string) (string, error) {
	ptr, err := d.text(name)
	if err != nil {
		return "", err
	}
	return *ptr, nil
}

// Set sets the text field `name` to `value` as is.
func (d *Draft) Set(name, value string) error {
	ptr, err := d.text(name)
	if err != nil {
		return err
	}
	*ptr = value
	return nil
}

// File returns the document attached to `name` (nil when none).
func (d Draft) File(name string) (*File, error) {
	ptr, err := d.file(name)
	if err != nil {
		return nil, err
	}
	return *ptr, nil
}

// SetFile attaches `f` to `name`; a nil `f` detaches the current document.
func (d *Draft) SetFile(name string, f *File) error {
	ptr, err := d.file(name)
	if err != nil {
		return err
	}
	*ptr = f
	return nil
}

// IsEmpty reports whether every field holds its empty default.
func (d Draft) IsEmpty() bool {
	return d == Draft{}
}

// Payload assembles every field of the draft, documents included.
func (d Draft) Payload() Payload {
	p := Payload{
		Values: make(map[string]string, len(FieldNames)),
		Files:  make(map[string]*File, 3),
	}
	for _, name := range FieldNames {
		if f, err := d.File(name); err == nil {
			p.Files[name] = f
			continue
		}
		p.Values[name], _ = d.Get(name)
	}
	return p
}

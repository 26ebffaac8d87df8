package application

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/idview/core"
)

// StepIndex is the 1-based position of a Step in the wizard.
type StepIndex int

const (
	StepPersonal StepIndex = iota + 1
	StepAcademic
	StepContact
	StepDocuments
	StepReview

	FirstStep = StepPersonal
	LastStep  = StepReview
)

// Field kinds, as rendered by clients.
const (
	KindText     = "text"
	KindEmail    = "email"
	KindTel      = "tel"
	KindDate     = "date"
	KindSelect   = "select"
	KindTextarea = "textarea"
	KindFile     = "file"
)

type (
	// Step is one page of the wizard. Implemented by PersonalStep, AcademicStep,
	// ContactStep, DocumentsStep and ReviewStep.
	Step interface {
		Index() StepIndex
		Title() string
		Description() string
		// Validate checks the step's required fields and returns an entry per missing field.
		Validate(d Draft) ValidationErrors
		Render(d Draft) StepView
	}

	PersonalStep  struct{}
	AcademicStep  struct{}
	ContactStep   struct{}
	DocumentsStep struct{}
	ReviewStep    struct{}

	Option struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}

	FieldView struct {
		Name     string   `json:"name"`
		Label    string   `json:"label"`
		Kind     string   `json:"kind"`
		Required bool     `json:"required"`
		Value    string   `json:"value,omitempty"`
		File     *File    `json:"file,omitempty"`
		Options  []Option `json:"options,omitempty"`
		Accept   []string `json:"accept,omitempty"`
	}

	// StepView is everything a client needs to draw a step.
	StepView struct {
		Index       StepIndex         `json:"index"`
		Title       string            `json:"title"`
		Description string            `json:"description"`
		Fields      []FieldView       `json:"fields"`
		Warnings    map[string]string `json:"warnings,omitempty"`
	}

	fieldSpec struct {
		name    string
		kind    string
		options []Option
	}
)

var (
	// Steps holds the wizard's steps, Steps[i] being at StepIndex i+1.
	Steps = []Step{PersonalStep{}, AcademicStep{}, ContactStep{}, DocumentsStep{}, ReviewStep{}}

	fieldLabels = map[string]string{
		FieldFirstName:             "First name",
		FieldLastName:              "Last name",
		FieldAdmissionNumber:       "Admission number",
		FieldNationalID:            "National ID",
		FieldEmail:                 "Email",
		FieldPhone:                 "Phone number",
		FieldDateOfBirth:           "Date of birth",
		FieldGender:                "Gender",
		FieldDepartment:            "Department",
		FieldCourse:                "Course",
		FieldYearOfStudy:           "Year of study",
		FieldExpectedGraduation:    "Expected graduation",
		FieldPermanentAddress:      "Permanent address",
		FieldCurrentAddress:        "Current address",
		FieldNextOfKinName:         "Next of kin name",
		FieldNextOfKinPhone:        "Next of kin phone",
		FieldNextOfKinRelationship: "Relationship",
		FieldPassportPhoto:         "Passport photo",
		FieldNationalIDCopy:        "National ID copy",
		FieldAdmissionLetter:       "Admission letter",
	}

	personalFields = []fieldSpec{
		{name: FieldFirstName, kind: KindText},
		{name: FieldLastName, kind: KindText},
		{name: FieldAdmissionNumber, kind: KindText},
		{name: FieldNationalID, kind: KindText},
		{name: FieldEmail, kind: KindEmail},
		{name: FieldPhone, kind: KindTel},
		{name: FieldDateOfBirth, kind: KindDate},
		{name: FieldGender, kind: KindSelect, options: []Option{
			{Value: "male", Label: "Male"},
			{Value: "female", Label: "Female"},
			{Value: "other", Label: "Other"},
		}},
	}
	academicFields = []fieldSpec{
		{name: FieldDepartment, kind: KindSelect, options: []Option{
			{Value: "computer-science", Label: "Computer Science"},
			{Value: "business", Label: "Business Administration"},
			{Value: "education", Label: "Education"},
			{Value: "engineering", Label: "Engineering"},
			{Value: "health-sciences", Label: "Health Sciences"},
		}},
		{name: FieldCourse, kind: KindText},
		{name: FieldYearOfStudy, kind: KindSelect, options: []Option{
			{Value: "1", Label: "Year 1"},
			{Value: "2", Label: "Year 2"},
			{Value: "3", Label: "Year 3"},
			{Value: "4", Label: "Year 4"},
			{Value: "5", Label: "Year 5"},
		}},
		{name: FieldExpectedGraduation, kind: KindDate},
	}
	contactFields = []fieldSpec{
		{name: FieldPermanentAddress, kind: KindTextarea},
		{name: FieldCurrentAddress, kind: KindTextarea},
		{name: FieldNextOfKinName, kind: KindText},
		{name: FieldNextOfKinPhone, kind: KindTel},
		{name: FieldNextOfKinRelationship, kind: KindSelect, options: []Option{
			{Value: "parent", Label: "Parent"},
			{Value: "guardian", Label: "Guardian"},
			{Value: "sibling", Label: "Sibling"},
			{Value: "spouse", Label: "Spouse"},
			{Value: "other", Label: "Other"},
		}},
	}
	documentFields = []fieldSpec{
		{name: FieldPassportPhoto, kind: KindFile},
		{name: FieldNationalIDCopy, kind: KindFile},
		{name: FieldAdmissionLetter, kind: KindFile},
	}
)

// StepAt returns the Step at index i, clamped to [FirstStep, LastStep].
func StepAt(i StepIndex) Step {
	if i < FirstStep {
		i = FirstStep
	} else if i > LastStep {
		i = LastStep
	}
	return Steps[i-1]
}

// Label returns the human label of field `name`.
func Label(name string) string {
	if l, ok := fieldLabels[name]; ok {
		return l
	}
	return name
}

func (PersonalStep) Index() StepIndex { return StepPersonal }
func (PersonalStep) Title() string { return "Personal Info" }
func (PersonalStep) Description() string { return "Basic personal details" }
func (PersonalStep) Validate(d Draft) ValidationErrors {
	return validateSection(d.PersonalInfo)
}
func (s PersonalStep) Render(d Draft) StepView { return renderStep(s, d, personalFields, true) }

func (AcademicStep) Index() StepIndex { return StepAcademic }
func (AcademicStep) Title() string { return "Academic Info" }
func (AcademicStep) Description() string { return "Course and department" }
func (AcademicStep) Validate(d Draft) ValidationErrors {
	return validateSection(d.AcademicInfo)
}
func (s AcademicStep) Render(d Draft) StepView { return renderStep(s, d, academicFields, true) }

func (ContactStep) Index() StepIndex { return StepContact }
func (ContactStep) Title() string { return "Contact Info" }
func (ContactStep) Description() string { return "Address and emergency contact" }
func (ContactStep) Validate(d Draft) ValidationErrors {
	return validateSection(d.ContactInfo)
}
func (s ContactStep) Render(d Draft) StepView { return renderStep(s, d, contactFields, true) }

func (DocumentsStep) Index() StepIndex { return StepDocuments }
func (DocumentsStep) Title() string { return "Documents" }
func (DocumentsStep) Description() string { return "Upload required documents" }
func (DocumentsStep) Validate(d Draft) ValidationErrors {
	return validateSection(d.Documents)
}
func (s DocumentsStep) Render(d Draft) StepView { return renderStep(s, d, documentFields, true) }

func (ReviewStep) Index() StepIndex { return StepReview }
func (ReviewStep) Title() string { return "Review" }
func (ReviewStep) Description() string { return "Review and submit" }
func (ReviewStep) Validate(Draft) ValidationErrors { return nil }

// Render lists every field read-only, along with non-blocking warnings.
func (s ReviewStep) Render(d Draft) StepView {
	all := make([]fieldSpec, 0, len(FieldNames))
	for _, specs := range [][]fieldSpec{personalFields, academicFields, contactFields, documentFields} {
		all = append(all, specs...)
	}
	view := renderStep(s, d, all, false)
	view.Warnings = Warnings(d)
	return view
}

// Warnings reports suspicious but acceptable values; they never block a submission.
func Warnings(d Draft) map[string]string {
	warnings := make(map[string]string)
	if d.AdmissionNumber != "" && !core.IsRegNumber(d.AdmissionNumber) {
		warnings[FieldAdmissionNumber] = "Admission number does not look like a registration number (eg: S110/2099/23)"
	}
	if len(warnings) == 0 {
		return nil
	}
	return warnings
}

func renderStep(s Step, d Draft, specs []fieldSpec, required bool) StepView {
	view := StepView{
		Index:       s.Index(),
		Title:       s.Title(),
		Description: s.Description(),
		Fields:      make([]FieldView, 0, len(specs)),
	}
	for _, spec := range specs {
		fv := FieldView{
			Name:     spec.name,
			Label:    Label(spec.name),
			Kind:     spec.kind,
			Required: required,
			Options:  spec.options,
		}
		if spec.kind == KindFile {
			fv.File, _ = d.File(spec.name)
			fv.Accept = accepts[spec.name]
		} else {
			fv.Value, _ = d.Get(spec.name)
		}
		view.Fields = append(view.Fields, fv)
	}
	return view
}

// validateSection runs the validator against one of the Draft sections
// and maps every failing field to its message, eg: "First name is required".
func validateSection(section interface{}) ValidationErrors {
	err := core.Validate.Struct(section)
	if err == nil {
		return nil
	}
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// only reachable with a non struct section
		panic(err)
	}
	errs := make(ValidationErrors, len(vErrs))
	for _, fe := range vErrs {
		if fe.Tag() == "required" {
			errs[fe.Field()] = Label(fe.Field()) + " is required"
		} else {
			errs[fe.Field()] = fe.Translate(core.Translator)
		}
	}
	return errs
}

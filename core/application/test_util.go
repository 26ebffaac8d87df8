package application

import (
	"context"
	"sync"
)

// SubmitterMock is a Submitter recording every payload it receives.
// It fails with Err when set, and waits for Release to be closed when set.
type SubmitterMock struct {
	Err     error
	Message string
	Release chan struct{}
	Started chan struct{}

	mu       sync.Mutex
	payloads []Payload
}

var _ Submitter = (*SubmitterMock)(nil)

func (s *SubmitterMock) SubmitApplication(ctx context.Context, p Payload) (Receipt, error) {
	s.mu.Lock()
	s.payloads = append(s.payloads, p)
	s.mu.Unlock()

	if s.Started != nil {
		s.Started <- struct{}{}
	}
	if s.Release != nil {
		select {
		case <-s.Release:
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		}
	}
	if s.Err != nil {
		return Receipt{}, s.Err
	}
	return Receipt{Message: s.Message}, nil
}

// Payloads returns the payloads submitted so far.
func (s *SubmitterMock) Payloads() []Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Payload(nil), s.payloads...)
}

// FillStep fills every required field of `step` with plausible values.
func FillStep(d *Draft, step StepIndex) {
	switch step {
	case StepPersonal:
		d.PersonalInfo = PersonalInfo{
			FirstName:       "Amina",
			LastName:        "Hassan",
			AdmissionNumber: "S110/2099/23",
			NationalID:      "34567890",
			Email:           "amina@students.gau.ac.ke",
			Phone:           "+254712345678",
			DateOfBirth:     "2003-04-12",
			Gender:          "female",
		}
	case StepAcademic:
		d.AcademicInfo = AcademicInfo{
			Department:         "computer-science",
			Course:             "BSc Computer Science",
			YearOfStudy:        "2",
			ExpectedGraduation: "2027-11-30",
		}
	case StepContact:
		d.ContactInfo = ContactInfo{
			PermanentAddress:      "P.O. Box 1801, Garissa",
			CurrentAddress:        "Hostel B, Room 12",
			NextOfKinName:         "Hassan Ali",
			NextOfKinPhone:        "+254722000111",
			NextOfKinRelationship: "parent",
		}
	case StepDocuments:
		d.Documents = Documents{
			PassportPhoto:   &File{Filename: "photo.png", ContentType: "image/png", Size: 4, Content: []byte("\x89PNG")},
			NationalIDCopy:  &File{Filename: "id.pdf", ContentType: "application/pdf", Size: 4, Content: []byte("%PDF")},
			AdmissionLetter: &File{Filename: "letter.pdf", ContentType: "application/pdf", Size: 4, Content: []byte("%PDF")},
		}
	}
}

// FilledDraft returns a draft with every field filled.
func FilledDraft() Draft {
	var d Draft
	for step := FirstStep; step < LastStep; step++ {
		FillStep(&d, step)
	}
	return d
}

package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("submission not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// transitions lists the statuses each status may move to. A failed
// submission may be picked up again by a retry.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusFailed:     {StatusProcessing},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition wrapped with both statuses
// when from may not move to to.
func CheckTransition(from, to Status) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Document describes the file uploaded with a submission.
type Document struct {
	OriginalName string `json:"original_name"`
	StoredKey    string `json:"stored_key"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	PageCount    int    `json:"page_count,omitempty"`
}

func (d Document) IsPDF() bool { return d.MimeType == "application/pdf" }

// Answers are the optional screening answers sent with the form.
type Answers struct {
	YearsExperience   *int   `json:"years_experience,omitempty"`
	WillingToRelocate *bool  `json:"willing_to_relocate,omitempty"`
	EarliestStart     string `json:"earliest_start,omitempty"`
	SalaryExpectation string `json:"salary_expectation,omitempty"`
	WorkAuthorization string `json:"work_authorization,omitempty"`
}

func (a Answers) Empty() bool {
	return a.YearsExperience == nil && a.WillingToRelocate == nil && a.EarliestStart == "" &&
		a.SalaryExpectation == "" && a.WorkAuthorization == ""
}

type Submission struct {
	ID             uuid.UUID `json:"id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Position       string    `json:"position"`
	JobDescription string    `json:"job_description"`
	CoverLetter    string    `json:"cover_letter,omitempty"`
	PortfolioURL   string    `json:"portfolio_url,omitempty"`
	Answers        Answers   `json:"answers"`
	Document       Document  `json:"document"`
	Status         Status    `json:"status"`
	PDFKey         string    `json:"pdf_key,omitempty"`
	FailureReason  string    `json:"failure_reason,omitempty"`
	Attempts       int       `json:"attempts"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Patch carries the columns updated together with a status transition.
// Nil fields are left unchanged.
type Patch struct {
	PDFKey        *string
	FailureReason *string
	PageCount     *int
	IncAttempts   bool
}

// Apply copies the patch onto s and moves it to status to.
func (p Patch) Apply(s *Submission, to Status, now time.Time) {
	s.Status = to
	if p.PDFKey != nil {
		s.PDFKey = *p.PDFKey
	}
	if p.FailureReason != nil {
		s.FailureReason = *p.FailureReason
	}
	if p.PageCount != nil {
		s.Document.PageCount = *p.PageCount
	}
	if p.IncAttempts {
		s.Attempts++
	}
	s.UpdatedAt = now
}

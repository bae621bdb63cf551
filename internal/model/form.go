package model

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"application-pdf/internal/domain"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

// DefaultMaxFileSize is used when no upload limit is configured.
const DefaultMaxFileSize int64 = 10 << 20

// AllowedMimeTypes lists the document types accepted with an application.
var AllowedMimeTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
}

// ApplicationForm is the multipart form posted by an applicant.
type ApplicationForm struct {
	FullName       string `form:"full_name" json:"full_name" validate:"required,min=2,max=120"`
	Email          string `form:"email" json:"email" validate:"required,email,max=254"`
	Phone          string `form:"phone" json:"phone" validate:"max=40"`
	Position       string `form:"position" json:"position" validate:"required,max=160"`
	JobDescription string `form:"job_description" json:"job_description" validate:"required,min=20,max=20000"`
	CoverLetter    string `form:"cover_letter" json:"cover_letter" validate:"max=10000"`
	PortfolioURL   string `form:"portfolio_url" json:"portfolio_url" validate:"omitempty,max=2048,http_url"`
	Answers        string `form:"answers" json:"answers"`
}

func (f *ApplicationForm) normalize() {
	f.FullName = strings.TrimSpace(f.FullName)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Position = strings.TrimSpace(f.Position)
	f.JobDescription = strings.TrimSpace(f.JobDescription)
	f.CoverLetter = strings.TrimSpace(f.CoverLetter)
	f.PortfolioURL = strings.TrimSpace(f.PortfolioURL)
}

// Upload is the document sent with the form. Content is rewound after the
// type is sniffed.
type Upload struct {
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

// FieldError is one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every problem found in a submission.
type ValidationError struct {
	Details []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, d.Field+": "+d.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Valid is the accepted form together with the decoded answers and the
// sniffed document type.
type Valid struct {
	Form     ApplicationForm
	Answers  domain.Answers
	MimeType string
}

// Validator checks application forms and their uploads.
type Validator struct {
	v           *validator.Validate
	maxFileSize int64
}

func NewValidator(maxFileSize int64) *Validator {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	// Use form names for fields in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v, maxFileSize: maxFileSize}
}

func (v *Validator) MaxFileSize() int64 { return v.maxFileSize }

// Validate checks the form, the answers and the upload, reporting all
// problems together in a *ValidationError.
func (v *Validator) Validate(form ApplicationForm, upload *Upload) (*Valid, error) {
	form.normalize()
	var details []FieldError

	if err := v.v.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("validate form: %w", err)
		}
		for _, e := range verrs {
			details = append(details, FieldError{Field: e.Field(), Message: validationMessage(e)})
		}
	}

	answers, answerErrs := ParseAnswers(form.Answers)
	details = append(details, answerErrs...)

	mimeType, fileErr, err := v.checkUpload(upload)
	if err != nil {
		return nil, err
	}
	if fileErr != nil {
		details = append(details, *fileErr)
	}

	if len(details) > 0 {
		return nil, &ValidationError{Details: details}
	}
	return &Valid{Form: form, Answers: answers, MimeType: mimeType}, nil
}

func (v *Validator) checkUpload(u *Upload) (string, *FieldError, error) {
	reject := func(msg string) (string, *FieldError, error) {
		return "", &FieldError{Field: "document", Message: msg}, nil
	}
	if u == nil || u.Content == nil {
		return reject("This field is required")
	}
	if u.Size <= 0 {
		return reject("File is empty")
	}
	if u.Size > v.maxFileSize {
		return reject(fmt.Sprintf("File must be at most %d bytes", v.maxFileSize))
	}

	detected, err := mimetype.DetectReader(u.Content)
	if err != nil {
		return "", nil, fmt.Errorf("detect document type: %w", err)
	}
	if _, err := u.Content.Seek(0, io.SeekStart); err != nil {
		return "", nil, fmt.Errorf("rewind document: %w", err)
	}
	for _, allowed := range AllowedMimeTypes {
		if detected.Is(allowed) {
			return allowed, nil, nil
		}
	}
	return reject("Unsupported file type " + detected.String() + "; upload a PDF, Word or plain text document")
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Must be at least " + e.Param() + " characters"
	case "max":
		return "Must be at most " + e.Param() + " characters"
	case "http_url":
		return "Must be an http or https URL"
	default:
		return "Invalid value"
	}
}

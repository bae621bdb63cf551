package infrastructure

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"application-pdf/internal/domain"

	"golang.org/x/net/publicsuffix"
)

// Summary is the document content shared by every renderer.
type Summary struct {
	Title      string
	Author     string
	Reference  string
	CreatedAt  time.Time
	Fields     []SummaryField
	Answers    []SummaryField
	Sections   []SummarySection
	Attachment *AttachmentInfo
}

type SummaryField struct {
	Label string
	Value string
}

type SummarySection struct {
	Title string
	Body  string
}

// AttachmentInfo describes what happens to the uploaded document in the
// generated PDF.
type AttachmentInfo struct {
	Name     string
	Pages    int
	Embedded bool
	Notice   string
}

func embeddedAttachment(name string, pages int) *AttachmentInfo {
	notice := fmt.Sprintf("The following %d pages reproduce the uploaded document %q.", pages, name)
	if pages == 1 {
		notice = fmt.Sprintf("The following page reproduces the uploaded document %q.", name)
	}
	return &AttachmentInfo{Name: name, Pages: pages, Embedded: true, Notice: notice}
}

func unavailableAttachment(name, reason string) *AttachmentInfo {
	return &AttachmentInfo{
		Name:   name,
		Notice: fmt.Sprintf("The uploaded document %q is not reproduced in this summary: %s. The original file is stored with the application.", name, reason),
	}
}

const dateLayout = "2 January 2006, 15:04 MST"

// NewSummary collects the printable content of a submission. The attachment
// section is filled in by the renderer once it knows whether the document
// can be embedded.
func NewSummary(s *domain.Submission) Summary {
	sum := Summary{
		Title:     "Job application: " + s.Position,
		Author:    s.FullName,
		Reference: s.ID.String(),
		CreatedAt: s.CreatedAt.UTC(),
	}

	add := func(fields *[]SummaryField, label, value string) {
		if strings.TrimSpace(value) != "" {
			*fields = append(*fields, SummaryField{Label: label, Value: value})
		}
	}

	add(&sum.Fields, "Applicant", s.FullName)
	add(&sum.Fields, "Email", s.Email)
	add(&sum.Fields, "Phone", s.Phone)
	add(&sum.Fields, "Position", s.Position)
	if s.PortfolioURL != "" {
		label := portfolioLabel(s.PortfolioURL)
		value := s.PortfolioURL
		if label != "" && label != s.PortfolioURL {
			value = label + " (" + s.PortfolioURL + ")"
		}
		add(&sum.Fields, "Portfolio", value)
	}
	add(&sum.Fields, "Submitted", sum.CreatedAt.Format(dateLayout))
	add(&sum.Fields, "Reference", sum.Reference)
	if s.Document.OriginalName != "" {
		add(&sum.Fields, "Document", s.Document.OriginalName)
	}

	a := s.Answers
	if a.YearsExperience != nil {
		add(&sum.Answers, "Experience", fmt.Sprintf("%d years", *a.YearsExperience))
	}
	if a.WillingToRelocate != nil {
		v := "No"
		if *a.WillingToRelocate {
			v = "Yes"
		}
		add(&sum.Answers, "Will relocate", v)
	}
	add(&sum.Answers, "Earliest start", a.EarliestStart)
	add(&sum.Answers, "Salary", a.SalaryExpectation)
	add(&sum.Answers, "Authorization", a.WorkAuthorization)

	if strings.TrimSpace(s.CoverLetter) != "" {
		sum.Sections = append(sum.Sections, SummarySection{Title: "Cover letter", Body: s.CoverLetter})
	}
	sum.Sections = append(sum.Sections, SummarySection{Title: "Job description", Body: s.JobDescription})
	return sum
}

// portfolioLabel reduces a URL to its registrable domain for display.
func portfolioLabel(raw string) string {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return ""
	}
	if !strings.HasPrefix(candidate, "http://") && !strings.HasPrefix(candidate, "https://") {
		candidate = "https://" + candidate
	}
	parsed, err := url.Parse(candidate)
	if err != nil {
		return raw
	}
	host := parsed.Hostname()
	if host == "" {
		return raw
	}
	if etld, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return strings.TrimPrefix(etld, "www.")
	}
	return strings.TrimPrefix(host, "www.")
}

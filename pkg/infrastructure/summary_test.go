package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolioLabel(t *testing.T) {
	cases := map[string]string{
		"https://www.blog.example.co.uk/about": "example.co.uk",
		"github.com/ada":                       "github.com",
		"http://ada.dev":                       "ada.dev",
		"":                                     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, portfolioLabel(in), in)
	}
}

func fieldMap(fields []SummaryField) map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f.Label] = f.Value
	}
	return m
}

func TestNewSummary(t *testing.T) {
	sub := testSubmission()
	sum := NewSummary(sub)

	assert.Equal(t, "Job application: Backend engineer", sum.Title)
	assert.Equal(t, sub.CreatedAt, sum.CreatedAt)

	fields := fieldMap(sum.Fields)
	assert.Equal(t, "Ada Lovelace", fields["Applicant"])
	assert.Equal(t, "example.co.uk (https://www.blog.example.co.uk/about)", fields["Portfolio"])
	assert.Equal(t, "1 October 2026, 09:30 UTC", fields["Submitted"])
	assert.Equal(t, sub.ID.String(), fields["Reference"])
	assert.NotContains(t, fields, "Document")

	answers := fieldMap(sum.Answers)
	assert.Equal(t, "7 years", answers["Experience"])
	assert.Equal(t, "Yes", answers["Will relocate"])
	assert.NotContains(t, answers, "Salary")

	require.Len(t, sum.Sections, 2)
	assert.Equal(t, "Cover letter", sum.Sections[0].Title)
	assert.Equal(t, "Job description", sum.Sections[1].Title)
	assert.Nil(t, sum.Attachment)
}

func TestNewSummary_SkipsEmptyOptionalFields(t *testing.T) {
	sub := testSubmission()
	sub.Phone = ""
	sub.CoverLetter = "   "
	sub.PortfolioURL = ""

	sum := NewSummary(sub)
	fields := fieldMap(sum.Fields)
	assert.NotContains(t, fields, "Phone")
	assert.NotContains(t, fields, "Portfolio")
	require.Len(t, sum.Sections, 1)
}

func TestSummaryHTML_EscapesContent(t *testing.T) {
	sub := testSubmission()
	sub.FullName = `<script>alert("x")</script>`
	sum := NewSummary(sub)
	sum.Attachment = embeddedAttachment("cv.pdf", 1)

	html, err := SummaryHTML(sum)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, "The following page reproduces")
}

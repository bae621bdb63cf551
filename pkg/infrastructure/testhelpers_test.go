package infrastructure

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"application-pdf/internal/domain"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	pdfread "github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func testSubmission() *domain.Submission {
	return &domain.Submission{
		ID:             uuid.MustParse("7d3c1f7e-4a59-4c1e-9f53-2f1f1f0c9a11"),
		FullName:       "Ada Lovelace",
		Email:          "ada@example.com",
		Phone:          "+44 20 7946 0000",
		Position:       "Backend engineer",
		JobDescription: strings.Repeat("Design and operate services that turn submitted forms into documents. ", 30),
		CoverLetter:    "I have built several document pipelines.\n\nI enjoy careful layout work.",
		PortfolioURL:   "https://www.blog.example.co.uk/about",
		Answers: domain.Answers{
			YearsExperience:   intPtr(7),
			WillingToRelocate: boolPtr(true),
			EarliestStart:     "2026-11-01",
		},
		Status:    domain.StatusProcessing,
		CreatedAt: time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC),
	}
}

func documentFor(name, mimeType string) domain.Document {
	return domain.Document{OriginalName: name, StoredKey: "uploads/" + name, MimeType: mimeType, Size: 1024}
}

// samplePDF builds a small PDF with the given number of A5 pages.
func samplePDF(t *testing.T, pages int) []byte {
	t.Helper()
	return labelledPDF(t, "Sample", pages)
}

// labelledPDF builds an A5 PDF whose page i reads "<label> page i".
func labelledPDF(t *testing.T, label string, pages int) []byte {
	t.Helper()
	doc := fpdf.New("P", "mm", "A5", "")
	doc.SetFont("Helvetica", "", 14)
	for i := 1; i <= pages; i++ {
		doc.AddPage()
		doc.Text(20, 30, fmt.Sprintf("%s page %d", label, i))
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

// readPDF returns the page count and plain text of a PDF.
func readPDF(t *testing.T, data []byte) (int, string) {
	t.Helper()
	rd, err := pdfread.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var text strings.Builder
	for i := 1; i <= rd.NumPage(); i++ {
		p := rd.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, err := p.GetPlainText(nil)
		require.NoError(t, err)
		text.WriteString(s)
	}
	return rd.NumPage(), text.String()
}

var doOperator = regexp.MustCompile(`/([A-Za-z0-9_]+) Do\b`)

// pageStreams returns, per page, the decoded page content followed by the
// content of every form XObject the page draws. Imported pages live in such
// forms, which GetPlainText does not follow.
func pageStreams(t *testing.T, data []byte) []string {
	t.Helper()
	rd, err := pdfread.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var pages []string
	for i := 1; i <= rd.NumPage(); i++ {
		p := rd.Page(i)
		content := streamText(t, p.V.Key("Contents"))
		var b strings.Builder
		b.WriteString(content)
		xobjects := p.Resources().Key("XObject")
		for _, m := range doOperator.FindAllStringSubmatch(content, -1) {
			b.WriteString(streamText(t, xobjects.Key(m[1])))
		}
		pages = append(pages, b.String())
	}
	return pages
}

func streamText(t *testing.T, v pdfread.Value) string {
	t.Helper()
	if v.Kind() == pdfread.Array {
		var b strings.Builder
		for i := 0; i < v.Len(); i++ {
			b.WriteString(streamText(t, v.Index(i)))
		}
		return b.String()
	}
	if v.Kind() != pdfread.Stream {
		return ""
	}
	rc := v.Reader()
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(raw)
}

// overstatePageCount makes a PDF claim one page more than it has. Readers
// that trust /Count accept it; copying the missing page fails.
func overstatePageCount(t *testing.T, data []byte, pages int) []byte {
	t.Helper()
	from := []byte(fmt.Sprintf("/Count %d", pages))
	to := []byte(fmt.Sprintf("/Count %d", pages+1))
	require.Contains(t, string(data), string(from))
	return bytes.Replace(data, from, to, 1)
}

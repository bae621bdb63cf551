package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"application-pdf/internal/domain"
	"application-pdf/pkg/layout"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
)

var defaultPage = layout.A4

// FPDFRenderer lays the summary out with the layout package and draws it
// with the PDF core fonts.
type FPDFRenderer struct {
	page   layout.Page
	theme  layout.Theme
	logger *zap.Logger
}

func NewFPDFRenderer(logger *zap.Logger) *FPDFRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FPDFRenderer{page: defaultPage, theme: layout.DefaultTheme, logger: logger}
}

func (r *FPDFRenderer) Name() string { return "fpdf" }

// Render produces the summary PDF. When attachment holds a readable PDF its
// pages are appended after the summary; otherwise the summary explains why
// they are missing. Attachment problems never fail the render.
func (r *FPDFRenderer) Render(ctx context.Context, sub *domain.Submission, attachment []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sum := NewSummary(sub)
	name := sub.Document.OriginalName

	if name == "" && len(attachment) == 0 {
		return r.compose(sum, nil, 0)
	}
	if !sub.Document.IsPDF() {
		sum.Attachment = unavailableAttachment(name, "only PDF documents can be embedded")
		return r.compose(sum, nil, 0)
	}
	pages, err := PageCount(attachment)
	if err != nil {
		r.logger.Warn("attachment is not a readable PDF", zap.String("submission_id", sub.ID.String()), zap.Error(err))
		sum.Attachment = unavailableAttachment(name, "the file could not be read as a PDF")
		return r.compose(sum, nil, 0)
	}

	sum.Attachment = embeddedAttachment(name, pages)
	out, err := r.compose(sum, attachment, pages)
	var embedErr *EmbedError
	if errors.As(err, &embedErr) {
		r.logger.Warn("embedding attachment failed, rendering without it",
			zap.String("submission_id", sub.ID.String()), zap.Error(err))
		sum.Attachment = unavailableAttachment(name, "its pages could not be copied")
		return r.compose(sum, nil, 0)
	}
	return out, err
}

func (r *FPDFRenderer) compose(sum Summary, attachment []byte, pages int) ([]byte, error) {
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetMargins(r.page.Margin, r.page.Margin, r.page.Margin)
	doc.SetAutoPageBreak(false, 0)
	doc.SetTitle(sum.Title, true)
	doc.SetAuthor(sum.Author, true)
	doc.SetSubject("Application "+sum.Reference, true)
	doc.SetCreator("application-pdf", true)
	doc.SetCreationDate(sum.CreatedAt)
	doc.SetModificationDate(sum.CreatedAt)

	tr := doc.UnicodeTranslatorFromDescriptor("")
	flow := layout.NewFlow(r.page, r.theme, fpdfMetrics{doc: doc, tr: tr})
	writeSummary(flow, sum)
	r.draw(doc, tr, flow.Pages(), sum.Reference)

	if attachment != nil {
		if err := newPageCopier(doc).appendPages(attachment, pages); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// writeSummary feeds the summary content into a flow.
func writeSummary(flow *layout.Flow, sum Summary) {
	flow.Title(sum.Title)
	flow.Heading("Applicant")
	for _, f := range sum.Fields {
		flow.Field(f.Label, f.Value)
	}
	if len(sum.Answers) > 0 {
		flow.Heading("Additional information")
		for _, f := range sum.Answers {
			flow.Field(f.Label, f.Value)
		}
	}
	for _, s := range sum.Sections {
		flow.Heading(s.Title)
		flow.Paragraph(s.Body)
	}
	if sum.Attachment != nil {
		flow.Heading("Attached document")
		flow.Note(sum.Attachment.Notice)
	}
}

func (r *FPDFRenderer) draw(doc *fpdf.Fpdf, tr func(string) string, pages []layout.PageContent, ref string) {
	footer := r.theme.Note
	for i, p := range pages {
		doc.AddPageFormat("P", fpdf.SizeType{Wd: r.page.Width, Ht: r.page.Height})

		doc.SetDrawColor(170, 170, 170)
		doc.SetLineWidth(0.5)
		for _, rule := range p.Rules {
			y := r.page.Height - rule.Y
			doc.Line(rule.X1, y, rule.X2, y)
		}
		for _, t := range p.Texts {
			doc.SetFont(t.Style.Font, t.Style.FontStyle, t.Style.Size)
			doc.SetTextColor(t.Style.Gray, t.Style.Gray, t.Style.Gray)
			doc.Text(t.X, r.page.Height-t.Y, tr(t.Value))
		}

		doc.SetFont(footer.Font, "", footer.Size-1)
		doc.SetTextColor(footer.Gray, footer.Gray, footer.Gray)
		label := fmt.Sprintf("Application %s - page %d of %d", ref, i+1, len(pages))
		doc.Text(r.page.Margin, r.page.Height-r.page.Margin/2, tr(label))
	}
}

type fpdfMetrics struct {
	doc *fpdf.Fpdf
	tr  func(string) string
}

func (m fpdfMetrics) Width(s string, st layout.Style) float64 {
	m.doc.SetFont(st.Font, st.FontStyle, st.Size)
	return m.doc.GetStringWidth(m.tr(s))
}

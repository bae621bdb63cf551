package infrastructure

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"application-pdf/internal/domain"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
)

//go:embed templates/summary.html
var summaryTemplate string

var summaryTpl = template.Must(template.New("summary").Parse(summaryTemplate))

// ChromedpConfig configures the headless Chrome renderer.
type ChromedpConfig struct {
	// ExecPath overrides the Chrome binary; empty uses the default lookup.
	ExecPath string
	// Timeout bounds a single print.
	Timeout   time.Duration
	NoSandbox bool
}

// ChromedpRenderer prints the summary as HTML through headless Chrome and
// appends attachment pages with the same importer the fpdf renderer uses.
type ChromedpRenderer struct {
	cfg    ChromedpConfig
	logger *zap.Logger
}

func NewChromedpRenderer(cfg ChromedpConfig, logger *zap.Logger) *ChromedpRenderer {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromedpRenderer{cfg: cfg, logger: logger}
}

func (r *ChromedpRenderer) Name() string { return "chromedp" }

func (r *ChromedpRenderer) Render(ctx context.Context, sub *domain.Submission, attachment []byte) ([]byte, error) {
	sum := NewSummary(sub)
	name := sub.Document.OriginalName

	var pages int
	switch {
	case name == "" && len(attachment) == 0:
	case !sub.Document.IsPDF():
		sum.Attachment = unavailableAttachment(name, "only PDF documents can be embedded")
	default:
		n, err := PageCount(attachment)
		if err != nil {
			r.logger.Warn("attachment is not a readable PDF", zap.String("submission_id", sub.ID.String()), zap.Error(err))
			sum.Attachment = unavailableAttachment(name, "the file could not be read as a PDF")
		} else {
			pages = n
			sum.Attachment = embeddedAttachment(name, n)
		}
	}

	printed, err := r.print(ctx, sum)
	if err != nil || pages == 0 {
		return printed, err
	}

	out, err := assemble(printed, attachment, pages, sum.CreatedAt)
	var embedErr *EmbedError
	if errors.As(err, &embedErr) {
		r.logger.Warn("embedding attachment failed, rendering without it",
			zap.String("submission_id", sub.ID.String()), zap.Error(err))
		sum.Attachment = unavailableAttachment(name, "its pages could not be copied")
		return r.print(ctx, sum)
	}
	return out, err
}

func (r *ChromedpRenderer) print(ctx context.Context, sum Summary) ([]byte, error) {
	html, err := SummaryHTML(sum)
	if err != nil {
		return nil, err
	}
	return r.RenderHTMLToPDF(ctx, html)
}

// SummaryHTML renders the summary template.
func SummaryHTML(sum Summary) (string, error) {
	var buf bytes.Buffer
	if err := summaryTpl.Execute(&buf, sum); err != nil {
		return "", fmt.Errorf("execute summary template: %w", err)
	}
	return buf.String(), nil
}

// RenderHTMLToPDF prints an HTML document to an A4 PDF.
func (r *ChromedpRenderer) RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if r.cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	if r.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.cfg.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	cctx, cancelCtx := chromedp.NewContext(allocCtx)
	defer cancelCtx()

	ctx2, cancel2 := context.WithTimeout(cctx, r.cfg.Timeout)
	defer cancel2()

	tmpDir, err := os.MkdirTemp("", "application-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	htmlPath := filepath.Join(tmpDir, "index.html")
	if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
		return nil, err
	}

	var pdfBuf []byte
	err = chromedp.Run(ctx2,
		chromedp.Navigate("file://"+htmlPath),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			// A4: 210mm x 297mm -> inches: 8.27 x 11.69
			pdfBuf, _, err = page.PrintToPDF().WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	return pdfBuf, nil
}

// assemble copies the printed summary and the attachment into one document.
func assemble(summary, attachment []byte, attachmentPages int, created time.Time) ([]byte, error) {
	summaryPages, err := PageCount(summary)
	if err != nil {
		return nil, fmt.Errorf("printed summary: %w", err)
	}

	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetAutoPageBreak(false, 0)
	doc.SetCreator("application-pdf", true)
	doc.SetCreationDate(created)
	doc.SetModificationDate(created)
	pc := newPageCopier(doc)
	if err := pc.appendPages(summary, summaryPages); err != nil {
		// the summary came from Chrome, so this is not an attachment problem
		return nil, fmt.Errorf("import printed summary: %w", errors.Unwrap(err))
	}
	if err := pc.appendPages(attachment, attachmentPages); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

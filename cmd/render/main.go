package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"application-pdf/internal/domain"
	"application-pdf/internal/infrastructure/logger"
	"application-pdf/internal/usecase"
	infra "application-pdf/pkg/infrastructure"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var opts struct {
	input      string
	attachment string
	output     string
	engine     string
	chromePath string
	timeout    time.Duration
	verbose    bool
}

var rootCmd = &cobra.Command{
	Use:   "render",
	Short: "Render an application summary PDF without the service",
	Long: `Reads a submission as JSON and writes the summary PDF the service would
generate for it. No database or storage is needed.

  render -i submission.json -a cv.pdf -o summary.pdf`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "submission JSON file (required)")
	f.StringVarP(&opts.attachment, "attachment", "a", "", "document to embed")
	f.StringVarP(&opts.output, "output", "o", "summary.pdf", "output PDF file")
	f.StringVar(&opts.engine, "engine", "fpdf", "renderer engine: fpdf or chromedp")
	f.StringVar(&opts.chromePath, "chrome", "", "Chrome executable for the chromedp engine")
	f.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "render timeout")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	_ = rootCmd.MarkFlagRequired("input")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadSubmission reads the submission and fills what a stored one would have.
// A missing ID is derived from the input so repeated runs print the same
// reference.
func loadSubmission(path string) (*domain.Submission, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sub domain.Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.NewSHA1(uuid.NameSpaceURL, raw)
	}
	if sub.CreatedAt.IsZero() {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		sub.CreatedAt = info.ModTime().UTC()
	}
	return &sub, nil
}

func readAttachment(path string, sub *domain.Submission) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sub.Document = domain.Document{
		OriginalName: filepath.Base(path),
		MimeType:     mimetype.Detect(data).String(),
		Size:         int64(len(data)),
	}
	if sub.Document.IsPDF() {
		if n, err := infra.PageCount(data); err == nil {
			sub.Document.PageCount = n
		}
	}
	return data, nil
}

func run(cmd *cobra.Command, args []string) error {
	level := "info"
	if opts.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}
	defer log.Sync()

	sub, err := loadSubmission(opts.input)
	if err != nil {
		return err
	}
	var attachment []byte
	if opts.attachment != "" {
		if attachment, err = readAttachment(opts.attachment, sub); err != nil {
			return err
		}
	}

	var r usecase.Renderer
	switch opts.engine {
	case "fpdf":
		r = infra.NewFPDFRenderer(log)
	case "chromedp":
		r = infra.NewChromedpRenderer(infra.ChromedpConfig{ExecPath: opts.chromePath, Timeout: opts.timeout}, log)
	default:
		return fmt.Errorf("unknown engine %q", opts.engine)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()
	start := time.Now()
	out, err := r.Render(ctx, sub, attachment)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := os.WriteFile(opts.output, out, 0o644); err != nil {
		return err
	}
	log.Info("rendered",
		zap.String("engine", r.Name()),
		zap.String("output", opts.output),
		zap.Int("bytes", len(out)),
		zap.Duration("took", time.Since(start)))
	return nil
}

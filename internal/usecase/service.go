package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"application-pdf/internal/domain"
	"application-pdf/internal/infrastructure/metrics"
	"application-pdf/internal/model"
	infra "application-pdf/pkg/infrastructure"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotReady is returned when the PDF of a submission is requested before
// it has been generated.
var ErrNotReady = errors.New("pdf is not ready")

// Service is the entry point for the HTTP layer.
type Service struct {
	validator *model.Validator
	repo      SubmissionsRepo
	files     FileStore
	queue     Enqueuer
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(v *model.Validator, repo SubmissionsRepo, files FileStore, queue Enqueuer, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{validator: v, repo: repo, files: files, queue: queue, metrics: m, logger: logger, now: time.Now}
}

// Submit validates a form, stores the submission together with its upload
// and queues it for rendering.
func (s *Service) Submit(ctx context.Context, form model.ApplicationForm, upload *model.Upload) (*domain.Submission, error) {
	valid, err := s.validator.Validate(form, upload)
	if err != nil {
		s.metrics.SubmissionReceived("rejected")
		return nil, err
	}

	// postgres keeps microseconds; truncating keeps rendered dates stable
	now := s.now().UTC().Truncate(time.Microsecond)
	key := "uploads/" + infra.SafeName(upload.Filename, valid.MimeType)
	f := valid.Form
	sub := &domain.Submission{
		ID:             uuid.New(),
		FullName:       f.FullName,
		Email:          f.Email,
		Phone:          f.Phone,
		Position:       f.Position,
		JobDescription: f.JobDescription,
		CoverLetter:    f.CoverLetter,
		PortfolioURL:   f.PortfolioURL,
		Answers:        valid.Answers,
		Document: domain.Document{
			OriginalName: displayName(upload.Filename),
			StoredKey:    key,
			MimeType:     valid.MimeType,
			Size:         upload.Size,
		},
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.repo.Create(ctx, sub, func(ctx context.Context) (func(context.Context) error, error) {
		if _, err := s.files.Save(ctx, key, upload.Content, valid.MimeType); err != nil {
			return nil, err
		}
		return func(ctx context.Context) error { return s.files.Remove(ctx, key) }, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}

	s.metrics.SubmissionReceived("accepted")
	s.logger.Info("submission accepted",
		zap.String("submission_id", sub.ID.String()),
		zap.String("mime_type", valid.MimeType),
		zap.Int64("size", upload.Size))
	s.queue.Enqueue(sub.ID)
	return sub, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	return s.repo.Get(ctx, id)
}

// Retry queues a failed submission for another render.
func (s *Service) Retry(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != domain.StatusFailed {
		return nil, fmt.Errorf("%w: %s is %s", domain.ErrInvalidTransition, id, sub.Status)
	}
	s.logger.Info("retrying submission", zap.String("submission_id", id.String()), zap.Int("attempts", sub.Attempts))
	s.queue.Enqueue(id)
	return sub, nil
}

// OpenPDF returns the generated PDF of a completed submission.
func (s *Service) OpenPDF(ctx context.Context, id uuid.UUID) (io.ReadCloser, *domain.Submission, error) {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if sub.Status != domain.StatusCompleted || sub.PDFKey == "" {
		return nil, sub, ErrNotReady
	}
	rc, err := s.files.Open(ctx, sub.PDFKey)
	if err != nil {
		return nil, sub, fmt.Errorf("open pdf: %w", err)
	}
	return rc, sub, nil
}

// displayName keeps the last path element of a client file name for
// display only.
func displayName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(strings.ToValidUTF8(name, ""))
	if name == "." || name == "/" || name == "" {
		return "document"
	}
	for utf8.RuneCountInString(name) > 255 {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return name
}

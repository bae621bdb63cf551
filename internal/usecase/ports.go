package usecase

import (
	"context"
	"io"

	repo "application-pdf/internal/adapter/repository"
	"application-pdf/internal/domain"

	"github.com/google/uuid"
)

// Renderer turns a submission and its uploaded document into a PDF.
type Renderer interface {
	Name() string
	Render(ctx context.Context, sub *domain.Submission, attachment []byte) ([]byte, error)
}

type SubmissionsRepo interface {
	Create(ctx context.Context, s *domain.Submission, store repo.StoreFunc) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Submission, error)
	Transition(ctx context.Context, id uuid.UUID, from, to domain.Status, p domain.Patch) error
	ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.Submission, error)
}

// FileStore keeps uploaded documents and generated PDFs.
type FileStore interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// Enqueuer schedules background rendering of a submission.
type Enqueuer interface {
	Enqueue(id uuid.UUID)
}

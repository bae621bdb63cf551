package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"application-pdf/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StoreFunc writes the file belonging to a submission while its row is
// being inserted. The returned cleanup removes the file again and is called
// when the transaction cannot be committed.
type StoreFunc func(ctx context.Context) (cleanup func(context.Context) error, err error)

type SubmissionsRepo struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewSubmissionsRepo(db *sql.DB, logger *zap.Logger) *SubmissionsRepo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionsRepo{db: db, logger: logger, now: time.Now}
}

const submissionColumns = `id, full_name, email, phone, position, job_description, cover_letter,
	portfolio_url, answers, doc_original_name, doc_stored_key, doc_mime_type, doc_size,
	doc_page_count, status, pdf_key, failure_reason, attempts, created_at, updated_at`

// Create inserts a pending submission and runs store inside the same
// transaction. Nothing is kept when either step fails.
func (r *SubmissionsRepo) Create(ctx context.Context, s *domain.Submission, store StoreFunc) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.Warn("rollback failed", zap.String("submission_id", s.ID.String()), zap.Error(rbErr))
			}
		}
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO submissions (`+submissionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		s.ID, s.FullName, s.Email, s.Phone, s.Position, s.JobDescription, s.CoverLetter,
		s.PortfolioURL, string(answers), s.Document.OriginalName, s.Document.StoredKey, s.Document.MimeType,
		s.Document.Size, s.Document.PageCount, s.Status, s.PDFKey, s.FailureReason, s.Attempts,
		s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	cleanup, err := store(ctx)
	if err != nil {
		return fmt.Errorf("store document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		committed = true
		if cleanup != nil {
			if cErr := cleanup(context.WithoutCancel(ctx)); cErr != nil {
				r.logger.Error("removing stored document after failed commit",
					zap.String("submission_id", s.ID.String()), zap.Error(cErr))
			}
		}
		return fmt.Errorf("commit submission: %w", err)
	}
	committed = true
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*domain.Submission, error) {
	var (
		s       domain.Submission
		answers []byte
		status  string
	)
	err := row.Scan(&s.ID, &s.FullName, &s.Email, &s.Phone, &s.Position, &s.JobDescription,
		&s.CoverLetter, &s.PortfolioURL, &answers, &s.Document.OriginalName, &s.Document.StoredKey,
		&s.Document.MimeType, &s.Document.Size, &s.Document.PageCount, &status, &s.PDFKey,
		&s.FailureReason, &s.Attempts, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &s.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of %s: %w", s.ID, err)
		}
	}
	s.Status = domain.Status(status)
	return &s, nil
}

func (r *SubmissionsRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	s, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get submission %s: %w", id, err)
	}
	return s, nil
}

// Transition moves a submission from one status to another and applies the
// patch in the same statement. The update only matches while the row is
// still in status from, so concurrent workers cannot both claim it.
func (r *SubmissionsRepo) Transition(ctx context.Context, id uuid.UUID, from, to domain.Status, p domain.Patch) error {
	if err := domain.CheckTransition(from, to); err != nil {
		return err
	}
	inc := 0
	if p.IncAttempts {
		inc = 1
	}

	res, err := r.db.ExecContext(ctx, `UPDATE submissions SET
			status = $1,
			pdf_key = COALESCE($2, pdf_key),
			failure_reason = COALESCE($3, failure_reason),
			doc_page_count = COALESCE($4, doc_page_count),
			attempts = attempts + $5,
			updated_at = $6
		WHERE id = $7 AND status = $8`,
		to, p.PDFKey, p.FailureReason, p.PageCount, inc, r.now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("update submission %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update submission %s: %w", id, err)
	}
	if n > 0 {
		return nil
	}

	var current string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM submissions WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read status of %s: %w", id, err)
	}
	return fmt.Errorf("%w: %s is %s, not %s", domain.ErrInvalidTransition, id, current, from)
}

// ListByStatus returns up to limit submissions in status, oldest first.
func (r *SubmissionsRepo) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.Submission, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+submissionColumns+` FROM submissions
		WHERE status = $1 ORDER BY created_at ASC LIMIT $2`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s submissions: %w", status, err)
	}
	defer rows.Close()

	var out []*domain.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s submissions: %w", status, err)
	}
	return out, nil
}

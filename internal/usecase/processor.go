package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"application-pdf/internal/domain"
	"application-pdf/internal/infrastructure/metrics"
	infra "application-pdf/pkg/infrastructure"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

type ProcessorConfig struct {
	// Workers bounds the number of renders running at once.
	Workers int
	// MaxAttempts is how often a render is tried before the submission
	// fails.
	MaxAttempts int
	// Backoff is the wait after the first failed attempt; it doubles after
	// each further failure.
	Backoff time.Duration
	// StaleAfter is how long a submission may sit in processing before
	// ResumePending treats it as interrupted.
	StaleAfter time.Duration
}

const interruptedReason = "interrupted"


// GeneratedKey is where the PDF of a submission is stored.
func GeneratedKey(id uuid.UUID) string {
	return "generated/" + id.String() + ".pdf"
}

// Processor renders submissions in the background.
type Processor struct {
	renderer Renderer
	repo     SubmissionsRepo
	files    FileStore
	metrics  *metrics.Metrics
	logger   *zap.Logger
	cfg      ProcessorConfig

	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
}

func NewProcessor(r Renderer, repo SubmissionsRepo, files FileStore, cfg ProcessorConfig, m *metrics.Metrics, logger *zap.Logger) *Processor {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		renderer: r,
		repo:     repo,
		files:    files,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(cfg.Workers)),
		ctx:      ctx,
		cancel:   cancel,
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Process claims a pending or failed submission, renders it and stores the
// result. The submission ends up completed, or failed with the reason.
func (p *Processor) Process(ctx context.Context, id uuid.UUID) error {
	sub, err := p.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	from := sub.Status
	if err := p.repo.Transition(ctx, id, from, domain.StatusProcessing, domain.Patch{IncAttempts: true}); err != nil {
		return err
	}
	sub.Status = domain.StatusProcessing
	log := p.logger.With(zap.String("submission_id", id.String()), zap.String("renderer", p.renderer.Name()))
	log.Info("processing submission", zap.String("from", string(from)))

	attachment := p.loadDocument(ctx, sub, log)
	out, err := p.render(ctx, sub, attachment, log)
	if err != nil {
		p.fail(ctx, id, err, log)
		return err
	}

	key := GeneratedKey(id)
	if _, err := p.files.Save(ctx, key, bytes.NewReader(out), "application/pdf"); err != nil {
		err = fmt.Errorf("store pdf: %w", err)
		p.fail(ctx, id, err, log)
		return err
	}

	patch := domain.Patch{PDFKey: &key, FailureReason: new(string)}
	if sub.Document.IsPDF() {
		if n, err := infra.PageCount(attachment); err == nil {
			patch.PageCount = &n
		}
	}
	if err := p.repo.Transition(ctx, id, domain.StatusProcessing, domain.StatusCompleted, patch); err != nil {
		err = fmt.Errorf("complete submission: %w", err)
		p.fail(ctx, id, err, log)
		return err
	}
	log.Info("submission completed", zap.String("pdf_key", key), zap.Int("size", len(out)))
	return nil
}

// loadDocument reads the uploaded file. A missing file is logged and the
// render goes on without it.
func (p *Processor) loadDocument(ctx context.Context, sub *domain.Submission, log *zap.Logger) []byte {
	if sub.Document.StoredKey == "" {
		return nil
	}
	rc, err := p.files.Open(ctx, sub.Document.StoredKey)
	if err != nil {
		log.Warn("stored document unavailable", zap.String("key", sub.Document.StoredKey), zap.Error(err))
		return nil
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		log.Warn("reading stored document failed", zap.String("key", sub.Document.StoredKey), zap.Error(err))
		return nil
	}
	return data
}

func (p *Processor) render(ctx context.Context, sub *domain.Submission, attachment []byte, log *zap.Logger) ([]byte, error) {
	var lastErr error
	for i := 0; i < p.cfg.MaxAttempts; i++ {
		start := time.Now()
		out, err := p.renderer.Render(ctx, sub, attachment)
		if err == nil && !bytes.HasPrefix(out, []byte("%PDF")) {
			err = fmt.Errorf("invalid PDF output (len=%d)", len(out))
		}
		p.metrics.ObserveRender(p.renderer.Name(), err, time.Since(start))
		if err == nil {
			return out, nil
		}
		lastErr = err
		log.Warn("render attempt failed", zap.Int("attempt", i+1), zap.Error(err))

		if i < p.cfg.MaxAttempts-1 {
			if err := p.sleep(ctx, p.cfg.Backoff<<i); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("render failed after %d attempts: %w", p.cfg.MaxAttempts, lastErr)
}

func (p *Processor) fail(ctx context.Context, id uuid.UUID, cause error, log *zap.Logger) {
	reason := cause.Error()
	// record the failure even when ctx was canceled by shutdown
	ctx = context.WithoutCancel(ctx)
	if err := p.repo.Transition(ctx, id, domain.StatusProcessing, domain.StatusFailed, domain.Patch{FailureReason: &reason}); err != nil {
		log.Error("marking submission failed", zap.Error(err))
		return
	}
	log.Error("submission failed", zap.String("reason", reason))
}

// Enqueue processes id in the background once a worker slot is free.
func (p *Processor) Enqueue(id uuid.UUID) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			p.logger.Warn("dropping queued submission on shutdown", zap.String("submission_id", id.String()))
			return
		}
		defer p.sem.Release(1)
		if err := p.Process(p.ctx, id); err != nil {
			p.logger.Warn("background processing ended with error", zap.String("submission_id", id.String()), zap.Error(err))
		}
	}()
}

// ResumePending queues submissions left behind by a previous run: pending
// ones, and processing ones not touched for StaleAfter, which are marked
// failed as interrupted first.
func (p *Processor) ResumePending(ctx context.Context, limit int) (int, error) {
	reclaimed, err := p.reclaimStale(ctx, limit)
	if err != nil {
		return 0, err
	}
	subs, err := p.repo.ListByStatus(ctx, domain.StatusPending, limit)
	if err != nil {
		return 0, err
	}
	for _, s := range subs {
		p.Enqueue(s.ID)
	}
	for _, id := range reclaimed {
		p.Enqueue(id)
	}
	n := len(subs) + len(reclaimed)
	if n > 0 {
		p.logger.Info("resumed submissions", zap.Int("pending", len(subs)), zap.Int("interrupted", len(reclaimed)))
	}
	return n, nil
}

func (p *Processor) reclaimStale(ctx context.Context, limit int) ([]uuid.UUID, error) {
	subs, err := p.repo.ListByStatus(ctx, domain.StatusProcessing, limit)
	if err != nil {
		return nil, err
	}
	cutoff := p.now().Add(-p.cfg.StaleAfter)
	reason := interruptedReason
	var ids []uuid.UUID
	for _, s := range subs {
		if s.UpdatedAt.After(cutoff) {
			continue
		}
		err := p.repo.Transition(ctx, s.ID, domain.StatusProcessing, domain.StatusFailed, domain.Patch{FailureReason: &reason})
		if errors.Is(err, domain.ErrInvalidTransition) {
			// finished in the meantime
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reclaim %s: %w", s.ID, err)
		}
		p.logger.Warn("reclaimed interrupted submission", zap.String("submission_id", s.ID.String()), zap.Time("updated_at", s.UpdatedAt))
		ids = append(ids, s.ID)
	}
	return ids, nil
}

// Wait blocks until queued work has finished. When ctx ends first the
// running renders are canceled and ctx's error is returned.
func (p *Processor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	repo "application-pdf/internal/adapter/repository"
	"application-pdf/internal/domain"

	"github.com/google/uuid"
)

type memRepo struct {
	mu        sync.Mutex
	subs      map[uuid.UUID]*domain.Submission
	commitErr error
	// failNext makes the next transition to that status fail once.
	failNext map[domain.Status]error
}

func newMemRepo() *memRepo {
	return &memRepo{subs: map[uuid.UUID]*domain.Submission{}, failNext: map[domain.Status]error{}}
}

func (r *memRepo) put(s *domain.Submission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.subs[s.ID] = &cp
}

func (r *memRepo) Create(ctx context.Context, s *domain.Submission, store repo.StoreFunc) error {
	cleanup, err := store(ctx)
	if err != nil {
		return err
	}
	if r.commitErr != nil {
		if cleanup != nil {
			_ = cleanup(ctx)
		}
		return r.commitErr
	}
	r.put(s)
	return nil
}

func (r *memRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memRepo) Transition(ctx context.Context, id uuid.UUID, from, to domain.Status, p domain.Patch) error {
	if err := domain.CheckTransition(from, to); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failNext[to]; ok {
		delete(r.failNext, to)
		return err
	}
	s, ok := r.subs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if s.Status != from {
		return fmt.Errorf("%w: is %s", domain.ErrInvalidTransition, s.Status)
	}
	p.Apply(s, to, time.Now())
	return nil
}

func (r *memRepo) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Submission
	for _, s := range r.subs {
		if s.Status == status {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	saveErr error
}

func newMemStore() *memStore { return &memStore{files: map[string][]byte{}} }

func (m *memStore) Save(ctx context.Context, key string, r io.Reader, contentType string) (int64, error) {
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = data
	return int64(len(data)), nil
}

func (m *memStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[key]
	if !ok {
		return nil, errors.New("no such file")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, key)
	return nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[key]
	return ok
}

// scriptedRenderer returns the queued results in order, then repeats the
// last one.
type scriptedRenderer struct {
	mu          sync.Mutex
	results     []renderResult
	calls       int
	attachments [][]byte
	running     int
	maxRunning  int
	delay       time.Duration
}

type renderResult struct {
	out []byte
	err error
}

var okPDF = renderResult{out: []byte("%PDF-1.4 generated")}

func (r *scriptedRenderer) Name() string { return "scripted" }

func (r *scriptedRenderer) Render(ctx context.Context, sub *domain.Submission, attachment []byte) ([]byte, error) {
	r.mu.Lock()
	r.running++
	if r.running > r.maxRunning {
		r.maxRunning = r.running
	}
	i := r.calls
	r.calls++
	r.attachments = append(r.attachments, attachment)
	res := okPDF
	if len(r.results) > 0 {
		if i >= len(r.results) {
			i = len(r.results) - 1
		}
		res = r.results[i]
	}
	r.mu.Unlock()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}

	r.mu.Lock()
	r.running--
	r.mu.Unlock()
	return res.out, res.err
}

type recordingQueue struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (q *recordingQueue) Enqueue(id uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
}

package workforce

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type InMemoryRepository struct {
	mu       sync.RWMutex
	workers  map[string]Worker
	payments []Payment
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{workers: make(map[string]Worker)}
}

func (r *InMemoryRepository) Create(_ context.Context, w *Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	w.CreatedAt = time.Now().UTC()
	r.workers[w.ID] = *w
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (*Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.workers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &w, nil
}

func (r *InMemoryRepository) List(_ context.Context) ([]Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Worker, 0, len(r.workers))
	for _, w := range r.workers {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InMemoryRepository) Update(_ context.Context, w *Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.workers[w.ID]
	if !ok {
		return ErrNotFound
	}
	w.CreatedAt = old.CreatedAt
	r.workers[w.ID] = *w
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.workers[id]; !ok {
		return ErrNotFound
	}
	delete(r.workers, id)

	kept := r.payments[:0]
	for _, p := range r.payments {
		if p.WorkforceID != id {
			kept = append(kept, p)
		}
	}
	r.payments = kept
	return nil
}

func (r *InMemoryRepository) AddPayment(_ context.Context, p *Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.workers[p.WorkforceID]; !ok {
		return ErrNotFound
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now().UTC()
	r.payments = append(r.payments, *p)
	return nil
}

func (r *InMemoryRepository) ListPayments(_ context.Context, workforceID string) ([]Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Payment{}
	for _, p := range r.payments {
		if p.WorkforceID == workforceID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaymentDate < out[j].PaymentDate })
	return out, nil
}

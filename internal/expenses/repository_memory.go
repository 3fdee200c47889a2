package expenses

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type InMemoryRepository struct {
	mu       sync.RWMutex
	expenses map[string]Expense
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{expenses: make(map[string]Expense)}
}

func (r *InMemoryRepository) Create(_ context.Context, e *Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.insert(e)
	return nil
}

func (r *InMemoryRepository) CreateBatch(_ context.Context, list []*Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range list {
		r.insert(e)
	}
	return nil
}

func (r *InMemoryRepository) insert(e *Expense) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = time.Now().UTC()
	r.expenses[e.ID] = *e
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (*Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.expenses[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Expense{}
	for _, e := range r.expenses {
		if f.match(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PaymentDate != out[j].PaymentDate {
			return out[i].PaymentDate > out[j].PaymentDate
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *InMemoryRepository) Update(_ context.Context, e *Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.expenses[e.ID]
	if !ok {
		return ErrNotFound
	}
	e.CreatedAt = old.CreatedAt
	r.expenses[e.ID] = *e
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.expenses[id]; !ok {
		return ErrNotFound
	}
	delete(r.expenses, id)
	return nil
}

package bills

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type InMemoryRepository struct {
	mu    sync.RWMutex
	bills map[string]Bill
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{bills: make(map[string]Bill)}
}

func (r *InMemoryRepository) Create(_ context.Context, b *Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.bills {
		if existing.BillNumber == b.BillNumber {
			return ErrDuplicateNumber
		}
	}
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	if b.Payments == nil {
		b.Payments = []Payment{}
	}
	r.bills[b.ID] = clone(*b)
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (*Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bills[id]
	if !ok {
		return nil, ErrNotFound
	}
	b = clone(b)
	return &b, nil
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Bill{}
	for _, b := range r.bills {
		if f.match(b) {
			out = append(out, clone(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].BillNumber > out[j].BillNumber
	})
	return out, nil
}

func (r *InMemoryRepository) Update(_ context.Context, b *Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.bills[b.ID]
	if !ok {
		return ErrNotFound
	}
	b.BillNumber = old.BillNumber
	b.CreatedAt = old.CreatedAt
	b.UpdatedAt = time.Now().UTC()
	b.Payments = old.Payments
	r.bills[b.ID] = clone(*b)
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bills[id]; !ok {
		return ErrNotFound
	}
	delete(r.bills, id)
	return nil
}

func (r *InMemoryRepository) FindByOrder(_ context.Context, orderID string) (*Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.bills {
		if b.OrderID != nil && *b.OrderID == orderID {
			b = clone(b)
			return &b, nil
		}
	}
	return nil, ErrNotFound
}

func (r *InMemoryRepository) AddPayment(_ context.Context, billID string, p *Payment, apply func(*Bill) error) (*Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bills[billID]
	if !ok {
		return nil, ErrNotFound
	}
	b := clone(stored)

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.BillID = billID
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}
	if err := apply(&b); err != nil {
		return nil, err
	}
	b.UpdatedAt = time.Now().UTC()
	r.bills[billID] = clone(b)
	return &b, nil
}

func clone(b Bill) Bill {
	b.Payments = append([]Payment{}, b.Payments...)
	return b
}

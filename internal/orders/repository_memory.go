package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"caterly/internal/meals"

	"github.com/google/uuid"
)

type InMemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]Order
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{orders: make(map[string]Order)}
}

func (r *InMemoryRepository) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.insert(o)
	return nil
}

func (r *InMemoryRepository) insert(o *Order) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	r.orders[o.ID] = clone(*o)
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o = clone(o)
	return &o, nil
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Order{}
	for _, o := range r.orders {
		if f.match(o) {
			out = append(out, clone(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *InMemoryRepository) Update(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.update(o)
}

func (r *InMemoryRepository) update(o *Order) error {
	old, ok := r.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	o.CreatedAt = old.CreatedAt
	o.UpdatedAt = time.Now().UTC()
	r.orders[o.ID] = clone(*o)
	return nil
}

func (r *InMemoryRepository) UpdateStatus(_ context.Context, id, status string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	o = clone(o)
	return &o, nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *InMemoryRepository) Split(_ context.Context, original, detached *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.update(original); err != nil {
		return err
	}
	r.insert(detached)
	return nil
}

func (r *InMemoryRepository) Merge(_ context.Context, merged *Order, sourceIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range sourceIDs {
		if _, ok := r.orders[id]; !ok {
			return ErrNotFound
		}
	}
	r.insert(merged)
	for _, id := range sourceIDs {
		delete(r.orders, id)
	}
	return nil
}

func clone(o Order) Order {
	sessions := make(meals.MealTypeAmounts, len(o.MealTypeAmounts))
	for k, v := range o.MealTypeAmounts {
		sessions[k] = v
	}
	o.MealTypeAmounts = sessions
	o.Items = append([]meals.LineItem{}, o.Items...)
	o.Stalls = append([]Stall{}, o.Stalls...)
	o.MergedFrom = append([]string{}, o.MergedFrom...)
	return o
}

package menuitems

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]MenuItem
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[string]MenuItem)}
}

func (r *InMemoryRepository) Create(_ context.Context, items ...*MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.CreatedAt = time.Now().UTC()
		r.items[item.ID] = *item
	}
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (*MenuItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]MenuItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []MenuItem{}
	for _, item := range r.items {
		if f.match(item) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *InMemoryRepository) Update(_ context.Context, item *MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.items[item.ID]
	if !ok {
		return ErrNotFound
	}
	item.CreatedAt = old.CreatedAt
	r.items[item.ID] = *item
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

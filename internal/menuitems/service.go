package menuitems

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"caterly/internal/meals"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, in Input) (*MenuItem, error) {
	item, err := in.toItem()
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Service) Get(ctx context.Context, id string) (*MenuItem, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]MenuItem, error) {
	if f.MenuType != "" {
		f.MenuType = meals.NormalizeMenuType(f.MenuType)
	}
	return s.repo.List(ctx, f)
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*MenuItem, error) {
	item, err := in.toItem()
	if err != nil {
		return nil, err
	}
	item.ID = id
	if err := s.repo.Update(ctx, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Import validates every row before storing any of them.
func (s *Service) Import(ctx context.Context, filename string, r io.Reader) ([]MenuItem, error) {
	inputs, err := ParseImport(filename, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidImport)
	}

	items := make([]*MenuItem, 0, len(inputs))
	for i, in := range inputs {
		item, err := in.toItem()
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidImport, i+1, err)
		}
		items = append(items, &item)
	}

	if err := s.repo.Create(ctx, items...); err != nil {
		return nil, err
	}

	out := make([]MenuItem, len(items))
	for i, item := range items {
		out[i] = *item
	}
	slog.Info("menu imported", "file", filename, "items", len(out))
	return out, nil
}

package customers

import (
	"context"
	"log/slog"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, in Input) (*Customer, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	c := &Customer{Name: in.Name, Phone: in.Phone, Email: in.Email, Address: in.Address}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	slog.Info("customer created", "customer_id", c.ID)
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Customer, error) {
	return s.repo.List(ctx)
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*Customer, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	c := &Customer{ID: id, Name: in.Name, Phone: in.Phone, Email: in.Email, Address: in.Address}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

package workforce

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, in Input) (*Worker, error) {
	w, err := in.toWorker()
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Worker, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Worker, error) {
	return s.repo.List(ctx)
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*Worker, error) {
	w, err := in.toWorker()
	if err != nil {
		return nil, err
	}
	w.ID = id
	if err := s.repo.Update(ctx, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) AddPayment(ctx context.Context, workforceID string, in PaymentInput) (*Payment, error) {
	p, err := in.toPayment(workforceID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddPayment(ctx, &p); err != nil {
		return nil, err
	}
	slog.Info("worker paid", "workforce_id", workforceID, "amount", p.Amount)
	return &p, nil
}

// Statement loads a worker with every payment made to them.
func (s *Service) Statement(ctx context.Context, workforceID string) (*Statement, error) {
	w, err := s.repo.Get(ctx, workforceID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, workforceID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(decimal.NewFromFloat(p.Amount))
	}
	return &Statement{
		Worker:    *w,
		Payments:  payments,
		TotalPaid: total.Round(2).InexactFloat64(),
	}, nil
}

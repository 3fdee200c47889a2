package expenses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"caterly/internal/allocation"
	"caterly/internal/metrics"
	"caterly/internal/orders"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderGetter resolves the orders a bulk expense is spread over.
type OrderGetter interface {
	Get(ctx context.Context, id string) (*orders.Order, error)
}

type Service struct {
	repo           Repository
	orders         OrderGetter
	fallbackWeight decimal.Decimal
	now            func() time.Time
}

// NewService uses fallbackWeight for orders without a recorded headcount;
// zero or less means allocation.DefaultFallbackWeight.
func NewService(repo Repository, orders OrderGetter, fallbackWeight float64) *Service {
	return &Service{
		repo:           repo,
		orders:         orders,
		fallbackWeight: decimal.NewFromFloat(fallbackWeight),
		now:            time.Now,
	}
}

func (s *Service) Create(ctx context.Context, in Input) (*Expense, error) {
	e := &Expense{}
	if err := in.apply(e, s.now()); err != nil {
		return nil, err
	}
	if err := s.checkOrder(ctx, e.OrderID); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Expense, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Expense, error) {
	return s.repo.List(ctx, f)
}

// Update edits one expense. Its allocation metadata is left as recorded.
func (s *Service) Update(ctx context.Context, id string, in Input) (*Expense, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(e, s.now()); err != nil {
		return nil, err
	}
	if err := s.checkOrder(ctx, e.OrderID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) checkOrder(ctx context.Context, orderID *string) error {
	if orderID == nil {
		return nil
	}
	_, err := s.orders.Get(ctx, *orderID)
	if errors.Is(err, orders.ErrNotFound) {
		return ErrUnknownOrder
	}
	return err
}

// PreviewBulk computes how in would be split without storing anything.
func (s *Service) PreviewBulk(ctx context.Context, in BulkInput) (*allocation.Summary, error) {
	policy, ok := allocation.ParsePolicy(in.Policy)
	if !ok {
		return nil, ErrUnknownPolicy
	}
	if in.TotalAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(in.Targets) < 2 {
		return nil, allocation.ErrTooFewTargets
	}

	targets, opts, err := s.targets(ctx, policy, in.Targets)
	if err != nil {
		return nil, err
	}
	if err := allocation.ValidateBatch(targets); err != nil {
		return nil, err
	}

	total := decimal.NewFromFloat(in.TotalAmount)
	summary := allocation.Summarize(policy, total, allocation.Allocate(policy, total, targets, opts))
	return &summary, nil
}

func (s *Service) targets(ctx context.Context, policy allocation.Policy, in []BulkTarget) ([]allocation.Target, allocation.Options, error) {
	opts := allocation.Options{
		FallbackWeight:   s.fallbackWeight,
		PriorAmounts:     map[string]decimal.Decimal{},
		PriorPercentages: map[string]decimal.Decimal{},
	}
	seen := make(map[string]bool, len(in))
	out := make([]allocation.Target, 0, len(in))

	for _, bt := range in {
		id := strings.TrimSpace(bt.OrderID)
		if seen[id] {
			return nil, opts, ErrDuplicateTarget
		}
		seen[id] = true

		o, err := s.orders.Get(ctx, id)
		if errors.Is(err, orders.ErrNotFound) {
			return nil, opts, fmt.Errorf("%w: %s", ErrUnknownOrder, id)
		}
		if err != nil {
			return nil, opts, err
		}

		t := allocation.Target{ID: id, DisplayName: o.EventName}
		if t.DisplayName == "" {
			t.DisplayName = "Order " + shortID(id)
		}

		switch {
		case bt.Weight != nil:
			w := decimal.NewFromFloat(*bt.Weight)
			t.Weight = &w
		case policy == allocation.PolicyWeight:
			if members, ok := o.MealTypeAmounts.TotalMembers(); ok {
				w := decimal.NewFromInt(int64(members))
				t.Weight = &w
			}
		}
		if bt.Amount != nil {
			opts.PriorAmounts[id] = decimal.NewFromFloat(*bt.Amount)
		}
		if bt.Percentage != nil {
			opts.PriorPercentages[id] = decimal.NewFromFloat(*bt.Percentage)
		}
		out = append(out, t)
	}
	return out, opts, nil
}

// BulkResult is what CreateBulk stored, with the allocation it came from.
type BulkResult struct {
	AllocationID string              `json:"allocationId"`
	Expenses     []Expense           `json:"expenses"`
	Summary      *allocation.Summary `json:"summary"`
}

// CreateBulk stores one expense per target, all sharing one allocation id.
// Manual amounts must add up to the total within a cent; percentages are
// stored as given even when they do not reach 100.
func (s *Service) CreateBulk(ctx context.Context, in BulkInput) (*BulkResult, error) {
	if strings.TrimSpace(in.Category) == "" {
		return nil, ErrCategoryMissing
	}
	date, err := paymentDate(in.PaymentDate, s.now())
	if err != nil {
		return nil, err
	}

	summary, err := s.PreviewBulk(ctx, in)
	if err != nil {
		return nil, err
	}
	if summary.Policy == allocation.PolicyManual && !summary.Balanced {
		return nil, fmt.Errorf("%w (off by %s)", ErrUnbalanced, summary.Delta.StringFixed(2))
	}

	allocationID := uuid.NewString()
	list := make([]*Expense, 0, len(summary.Targets))
	for _, t := range summary.Targets {
		orderID := t.ID
		e := &Expense{
			OrderID:          &orderID,
			Category:         strings.TrimSpace(in.Category),
			Description:      strings.TrimSpace(in.Description),
			Amount:           t.Amount.InexactFloat64(),
			PaymentDate:      date,
			PaymentMethod:    strings.TrimSpace(in.PaymentMethod),
			AllocationPolicy: string(summary.Policy),
			AllocationID:     &allocationID,
		}
		if t.Percentage != nil {
			pct := t.Percentage.InexactFloat64()
			e.Percentage = &pct
		}
		list = append(list, e)
	}

	if err := s.repo.CreateBatch(ctx, list); err != nil {
		return nil, err
	}
	metrics.RecordAllocation(string(summary.Policy))
	slog.Info("bulk expense allocated",
		"allocation_id", allocationID,
		"policy", summary.Policy,
		"targets", len(list),
		"total", summary.Total.StringFixed(2),
		"percentage_total", summary.PercentageTotal.StringFixed(2),
	)

	out := &BulkResult{AllocationID: allocationID, Expenses: make([]Expense, len(list)), Summary: summary}
	for i, e := range list {
		out.Expenses[i] = *e
	}
	return out, nil
}

// IsClientError reports whether err stems from the request rather than the server.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrCategoryMissing, ErrInvalidAmount, ErrInvalidDate, ErrUnknownPolicy,
		ErrUnknownOrder, ErrDuplicateTarget, ErrUnbalanced, allocation.ErrTooFewTargets,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

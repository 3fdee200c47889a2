package bills

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"caterly/internal/orders"

	"github.com/google/uuid"
)

// OrderGetter loads the order a bill is issued for.
type OrderGetter interface {
	Get(ctx context.Context, id string) (*orders.Order, error)
}

const numberAttempts = 3

type Service struct {
	repo   Repository
	orders OrderGetter
	now    func() time.Time
}

func NewService(repo Repository, orders OrderGetter) *Service {
	return &Service{repo: repo, orders: orders, now: time.Now}
}

// nextNumber returns BILL-<yyyymmdd>-<6 hex>.
func (s *Service) nextNumber() string {
	return fmt.Sprintf("BILL-%s-%s", s.now().UTC().Format("20060102"),
		strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6]))
}

// create assigns a bill number, retrying when the number is already taken.
func (s *Service) create(ctx context.Context, b *Bill) error {
	var err error
	for range numberAttempts {
		b.BillNumber = s.nextNumber()
		if err = s.repo.Create(ctx, b); !errors.Is(err, ErrDuplicateNumber) {
			break
		}
	}
	if err != nil {
		return err
	}
	slog.Info("bill created", "bill_id", b.ID, "bill_number", b.BillNumber, "total", b.TotalAmount)
	return nil
}

func (s *Service) Create(ctx context.Context, in Input) (*Bill, error) {
	b := &Bill{Payments: []Payment{}}
	if err := in.apply(b); err != nil {
		return nil, err
	}
	if b.OrderID != nil {
		if _, err := s.repo.FindByOrder(ctx, *b.OrderID); err == nil {
			return nil, ErrBillExists
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	if err := s.create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Bill, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Bill, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*Bill, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(b); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// CreateFromOrder bills the order's current total. An order is billed once.
func (s *Service) CreateFromOrder(ctx context.Context, orderID string) (*Bill, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	exists, err := s.ExistsForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrBillExists
	}
	return s.billOrder(ctx, o)
}

func (s *Service) billOrder(ctx context.Context, o *orders.Order) (*Bill, error) {
	if o.Status == orders.StatusCancelled {
		return nil, ErrOrderNotBillable
	}
	id := o.ID
	b := &Bill{
		OrderID:    &id,
		CustomerID: o.CustomerID,
		Subtotal:   o.Subtotal().Round(2).InexactFloat64(),
		Discount:   o.Discount,
		Payments:   []Payment{},
	}
	if o.EventName != "" {
		b.Notes = o.EventName
	}
	b.recompute()
	if err := s.create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) ExistsForOrder(ctx context.Context, orderID string) (bool, error) {
	_, ok, err := s.BillIDForOrder(ctx, orderID)
	return ok, err
}

// BillIDForOrder reports the order's bill, if any.
func (s *Service) BillIDForOrder(ctx context.Context, orderID string) (string, bool, error) {
	b, err := s.repo.FindByOrder(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return b.ID, true, nil
}

// EnsureBillForOrder returns the order's bill, creating it when missing.
func (s *Service) EnsureBillForOrder(ctx context.Context, o *orders.Order) (string, bool, error) {
	id, ok, err := s.BillIDForOrder(ctx, o.ID)
	if err != nil || ok {
		return id, false, err
	}
	b, err := s.billOrder(ctx, o)
	if err != nil {
		return "", false, err
	}
	return b.ID, true, nil
}

func (s *Service) RecordPayment(ctx context.Context, billID string, in PaymentInput) (*Bill, error) {
	p := &Payment{
		Amount: in.Amount,
		Method: strings.TrimSpace(in.Method),
		Notes:  strings.TrimSpace(in.Notes),
	}
	if in.PaidAt != nil {
		p.PaidAt = in.PaidAt.UTC()
	}
	b, err := s.repo.AddPayment(ctx, billID, p, func(b *Bill) error {
		return b.applyPayment(*p)
	})
	if err != nil {
		return nil, err
	}
	slog.Info("bill payment recorded", "bill_id", billID, "amount", p.Amount, "status", b.Status)
	return b, nil
}

// Statement loads the given bills and consolidates them per customer.
func (s *Service) Statement(ctx context.Context, ids []string) (*Statement, error) {
	if len(ids) == 0 {
		return nil, ErrNoBills
	}
	seen := make(map[string]bool, len(ids))
	list := make([]Bill, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, ErrDuplicateBill
		}
		seen[id] = true

		b, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		list = append(list, *b)
	}
	st := Consolidate(list)
	return &st, nil
}

// IsClientError reports whether err stems from the request rather than the server.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrCustomerMissing, ErrUnknownCustomer, ErrNegativeAmount, ErrInvalidPayment,
		ErrOverpayment, ErrNoBills, ErrDuplicateBill, ErrBelowPaidAmount, ErrOrderNotBillable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

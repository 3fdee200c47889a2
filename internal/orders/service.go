package orders

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"caterly/internal/meals"

	"github.com/shopspring/decimal"
)

// BillLinker is the slice of billing that orders depend on. It is satisfied
// by the bills service, wired in from main to avoid an import cycle.
type BillLinker interface {
	BillIDForOrder(ctx context.Context, orderID string) (string, bool, error)
	EnsureBillForOrder(ctx context.Context, o *Order) (billID string, created bool, err error)
}

// StatusResult reports a status change together with the bill side effect.
// BillError set means the status was saved but the bill was not created.
type StatusResult struct {
	Order       *Order
	BillID      string
	BillCreated bool
	BillError   error
}

// DetachResult is the original order after the split and the new order.
type DetachResult struct {
	Order    *Order `json:"order"`
	Detached *Order `json:"detached"`
}

type Service struct {
	repo  Repository
	bills BillLinker
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SetBillLinker wires billing in after both services exist.
func (s *Service) SetBillLinker(bills BillLinker) {
	s.bills = bills
}

func (s *Service) Create(ctx context.Context, in Input) (*Order, error) {
	o := &Order{}
	if err := in.apply(o); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	slog.Info("order created", "order_id", o.ID, "customer_id", o.CustomerID, "sessions", len(o.MealTypeAmounts))
	return o, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Status != "" && !canMove(o.Status, in.Status) {
		return nil, ErrInvalidTransition
	}
	from := o.Status
	if err := in.apply(o); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, err
	}
	if o.Status != from {
		slog.Info("order status changed", "order_id", id, "from", from, "to", o.Status)
		s.ensureBill(ctx, o)
	}
	return o, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// UpdateStatus moves the order and, when it goes in_progress, creates its
// bill if there is none yet. A failing bill does not undo the status change.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*StatusResult, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canMove(current.Status, status) {
		return nil, ErrInvalidTransition
	}

	o, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	slog.Info("order status changed", "order_id", id, "from", current.Status, "to", status)

	res := &StatusResult{Order: o}
	res.BillID, res.BillCreated, res.BillError = s.ensureBill(ctx, o)
	return res, nil
}

// ensureBill creates the bill for an order that has just gone in_progress.
func (s *Service) ensureBill(ctx context.Context, o *Order) (string, bool, error) {
	if o.Status != StatusInProgress || s.bills == nil {
		return "", false, nil
	}
	id, created, err := s.bills.EnsureBillForOrder(ctx, o)
	if err != nil {
		slog.Warn("status updated, but bill creation failed", "order_id", o.ID, "error", err)
	}
	return id, created, err
}

// checkUnbilled returns ErrAlreadyBilled when the order has a bill.
func (s *Service) checkUnbilled(ctx context.Context, id string) error {
	if s.bills == nil {
		return nil
	}
	_, billed, err := s.bills.BillIDForOrder(ctx, id)
	if err != nil {
		return err
	}
	if billed {
		return ErrAlreadyBilled
	}
	return nil
}

// Grouped returns the order laid out by date then session.
func (s *Service) Grouped(ctx context.Context, id string) ([]meals.DateGroup, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.Grouped(), nil
}

func (s *Service) DetachSession(ctx context.Context, id, sessionKey string) (*DetachResult, error) {
	return s.detach(ctx, id, func(b meals.Booking) (meals.Booking, meals.Booking, error) {
		return meals.DetachSession(b, sessionKey)
	})
}

func (s *Service) DetachDate(ctx context.Context, id, date string) (*DetachResult, error) {
	return s.detach(ctx, id, func(b meals.Booking) (meals.Booking, meals.Booking, error) {
		return meals.DetachDate(b, date)
	})
}

func (s *Service) detach(ctx context.Context, id string, split func(meals.Booking) (meals.Booking, meals.Booking, error)) (*DetachResult, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkUnbilled(ctx, id); err != nil {
		return nil, err
	}

	remaining, detachedPart, err := split(o.Booking())
	if err != nil {
		return nil, err
	}

	detached := &Order{
		CustomerID:   o.CustomerID,
		SupervisorID: o.SupervisorID,
		EventName:    o.EventName,
		Venue:        o.Venue,
		Status:       StatusPending,
		Stalls:       []Stall{},
		Notes:        "Detached from order " + o.ID,
		MergedFrom:   []string{},
	}
	detached.setBooking(detachedPart)
	detached.recompute()

	o.setBooking(remaining)
	o.recompute()

	if err := s.repo.Split(ctx, o, detached); err != nil {
		return nil, err
	}
	slog.Info("order detached",
		"order_id", o.ID,
		"new_order_id", detached.ID,
		"moved_sessions", len(detached.MealTypeAmounts),
		"moved_items", len(detached.Items),
	)
	return &DetachResult{Order: o, Detached: detached}, nil
}

// Merge combines orders of one customer into a new order and removes the
// originals. Billed orders cannot be merged.
func (s *Service) Merge(ctx context.Context, ids []string) (*Order, error) {
	seen := make(map[string]bool, len(ids))
	sources := make([]*Order, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, ErrDuplicateOrder
		}
		seen[id] = true

		o, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(sources) > 0 && o.CustomerID != sources[0].CustomerID {
			return nil, ErrCustomerMismatch
		}
		if err := s.checkUnbilled(ctx, id); err != nil {
			return nil, err
		}
		sources = append(sources, o)
	}

	bookings := make([]meals.Booking, len(sources))
	for i, o := range sources {
		bookings[i] = o.Booking()
	}
	booking, err := meals.Merge(bookings...)
	if err != nil {
		return nil, err
	}

	first := sources[0]
	merged := &Order{
		CustomerID:   first.CustomerID,
		SupervisorID: first.SupervisorID,
		Status:       StatusPending,
		Stalls:       []Stall{},
		MergedFrom:   []string{},
	}
	var names, notes []string
	discount := decimal.Zero
	for _, o := range sources {
		if o.EventName != "" {
			names = append(names, o.EventName)
		}
		if o.Notes != "" {
			notes = append(notes, o.Notes)
		}
		if merged.Venue == "" {
			merged.Venue = o.Venue
		}
		merged.Stalls = append(merged.Stalls, o.Stalls...)
		discount = discount.Add(decimal.NewFromFloat(o.Discount))
		merged.MergedFrom = append(merged.MergedFrom, o.MergedFrom...)
		merged.MergedFrom = append(merged.MergedFrom, o.ID)
	}
	merged.Discount = discount.Round(2).InexactFloat64()
	merged.EventName = strings.Join(names, " + ")
	merged.Notes = strings.Join(notes, "\n")
	merged.setBooking(booking)
	merged.recompute()

	if err := s.repo.Merge(ctx, merged, ids); err != nil {
		return nil, err
	}
	slog.Info("orders merged", "order_id", merged.ID, "sources", ids)
	return merged, nil
}

// IsClientError reports whether err stems from the request rather than the server.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrCustomerMissing, ErrUnknownCustomer, ErrNoSessions, ErrInvalidStatus, ErrInvalidDiscount,
		ErrDuplicateOrder, meals.ErrSingleSession, meals.ErrNothingToMerge,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

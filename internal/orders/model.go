// Package orders manages catering orders: their meal sessions, line items,
// stalls and the detach/merge operations between orders.
package orders

import (
	"errors"
	"strings"
	"time"

	"caterly/internal/meals"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrCustomerMissing   = errors.New("customerId is required")
	ErrUnknownCustomer   = errors.New("customer does not exist")
	ErrNoSessions        = errors.New("order needs at least one meal session")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("status change not allowed")
	ErrInvalidDiscount   = errors.New("discount cannot be negative")
	ErrCustomerMismatch  = errors.New("only orders of the same customer can be merged")
	ErrAlreadyBilled     = errors.New("order already has a bill")
	ErrDuplicateOrder    = errors.New("an order is listed more than once")
)

// transitions lists, per status, where an order may move next.
var transitions = map[string][]string{
	StatusPending:    {StatusConfirmed, StatusInProgress, StatusCancelled},
	StatusConfirmed:  {StatusPending, StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusConfirmed, StatusCompleted, StatusCancelled},
	StatusCompleted:  {StatusInProgress},
	StatusCancelled:  {StatusPending},
}

func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

func canMove(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Stall is an extra counter at the event (chaat, live dosa, ...).
type Stall struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Notes  string  `json:"notes,omitempty"`
}

type Order struct {
	ID              string                `json:"id"`
	CustomerID      string                `json:"customerId"`
	SupervisorID    *string               `json:"supervisorId,omitempty"`
	EventName       string                `json:"eventName"`
	Venue           string                `json:"venue"`
	Status          string                `json:"status"`
	MealTypeAmounts meals.MealTypeAmounts `json:"mealTypeAmounts"`
	Items           []meals.LineItem      `json:"items"`
	Stalls          []Stall               `json:"stalls"`
	Discount        float64               `json:"discount"`
	TotalAmount     float64               `json:"totalAmount"`
	Notes           string                `json:"notes"`
	MergedFrom      []string              `json:"mergedFrom"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

func (o *Order) Booking() meals.Booking {
	return meals.Booking{Sessions: o.MealTypeAmounts, Items: o.Items}
}

func (o *Order) setBooking(b meals.Booking) {
	o.MealTypeAmounts = b.Sessions
	o.Items = b.Items
}

// Subtotal is the session amounts plus the stalls.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range o.MealTypeAmounts.Sessions() {
		sum = sum.Add(decimal.NewFromFloat(s.Amount))
	}
	for _, st := range o.Stalls {
		sum = sum.Add(decimal.NewFromFloat(st.Amount))
	}
	return sum
}

// recompute refreshes TotalAmount; a discount larger than the subtotal
// brings the total to zero, not below.
func (o *Order) recompute() {
	total := o.Subtotal().Sub(decimal.NewFromFloat(o.Discount))
	if total.IsNegative() {
		total = decimal.Zero
	}
	o.TotalAmount = total.Round(2).InexactFloat64()
}

// FallbackDate is used for sessions and items without a date of their own.
func (o *Order) FallbackDate() string {
	if o.CreatedAt.IsZero() {
		return time.Now().UTC().Format("2006-01-02")
	}
	return o.CreatedAt.UTC().Format("2006-01-02")
}

// Grouped lays the order out as date -> session -> items.
func (o *Order) Grouped() []meals.DateGroup {
	return meals.GroupByDateThenSession(o.Items, o.MealTypeAmounts.Sessions(), o.FallbackDate())
}

// Input is the writable part of an order.
type Input struct {
	CustomerID      string                `json:"customerId"`
	SupervisorID    *string               `json:"supervisorId"`
	EventName       string                `json:"eventName"`
	Venue           string                `json:"venue"`
	Status          string                `json:"status"`
	MealTypeAmounts meals.MealTypeAmounts `json:"mealTypeAmounts"`
	Items           []meals.LineItem      `json:"items"`
	Stalls          []Stall               `json:"stalls"`
	Discount        float64               `json:"discount"`
	Notes           string                `json:"notes"`
}

func (in Input) apply(o *Order) error {
	if strings.TrimSpace(in.CustomerID) == "" {
		return ErrCustomerMissing
	}
	if len(in.MealTypeAmounts) == 0 {
		return ErrNoSessions
	}
	if in.Discount < 0 {
		return ErrInvalidDiscount
	}
	if in.Status != "" && !ValidStatus(in.Status) {
		return ErrInvalidStatus
	}

	o.CustomerID = strings.TrimSpace(in.CustomerID)
	o.SupervisorID = in.SupervisorID
	if o.SupervisorID != nil && *o.SupervisorID == "" {
		o.SupervisorID = nil
	}
	o.EventName = strings.TrimSpace(in.EventName)
	o.Venue = strings.TrimSpace(in.Venue)
	if in.Status != "" {
		o.Status = in.Status
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	o.MealTypeAmounts = in.MealTypeAmounts
	o.Items = make([]meals.LineItem, len(in.Items))
	for i, item := range in.Items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		o.Items[i] = item
	}
	o.Stalls = in.Stalls
	if o.Stalls == nil {
		o.Stalls = []Stall{}
	}
	o.Discount = in.Discount
	o.Notes = strings.TrimSpace(in.Notes)
	if o.MergedFrom == nil {
		o.MergedFrom = []string{}
	}
	o.recompute()
	return nil
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	CustomerID string
	Status     string
}

func (f Filter) match(o Order) bool {
	return (f.CustomerID == "" || o.CustomerID == f.CustomerID) &&
		(f.Status == "" || o.Status == f.Status)
}

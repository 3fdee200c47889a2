// Package expenses records what was spent on orders. One payment can be
// spread over several orders in a single bulk allocation.
package expenses

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("expense not found")
	ErrCategoryMissing = errors.New("category is required")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidDate     = errors.New("paymentDate must be YYYY-MM-DD")
	ErrUnknownPolicy   = errors.New("unknown allocation policy")
	ErrUnknownOrder    = errors.New("order does not exist")
	ErrDuplicateTarget = errors.New("an order is listed more than once")
	ErrUnbalanced      = errors.New("manual amounts do not add up to the total")
)

const dateLayout = "2006-01-02"

type Expense struct {
	ID               string    `json:"id"`
	OrderID          *string   `json:"orderId,omitempty"`
	Category         string    `json:"category"`
	Description      string    `json:"description"`
	Amount           float64   `json:"amount"`
	PaymentDate      string    `json:"paymentDate"`
	PaymentMethod    string    `json:"paymentMethod"`
	AllocationPolicy string    `json:"allocationPolicy,omitempty"`
	AllocationID     *string   `json:"allocationId,omitempty"`
	Percentage       *float64  `json:"percentage,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

type Input struct {
	OrderID       *string `json:"orderId"`
	Category      string  `json:"category"`
	Description   string  `json:"description"`
	Amount        float64 `json:"amount"`
	PaymentDate   string  `json:"paymentDate"`
	PaymentMethod string  `json:"paymentMethod"`
}

func (in Input) apply(e *Expense, today time.Time) error {
	if strings.TrimSpace(in.Category) == "" {
		return ErrCategoryMissing
	}
	if in.Amount <= 0 {
		return ErrInvalidAmount
	}
	date, err := paymentDate(in.PaymentDate, today)
	if err != nil {
		return err
	}

	e.OrderID = in.OrderID
	if e.OrderID != nil && *e.OrderID == "" {
		e.OrderID = nil
	}
	e.Category = strings.TrimSpace(in.Category)
	e.Description = strings.TrimSpace(in.Description)
	e.Amount = in.Amount
	e.PaymentDate = date
	e.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	return nil
}

// paymentDate defaults to today and otherwise must be a calendar date.
func paymentDate(raw string, today time.Time) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return today.Format(dateLayout), nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return "", ErrInvalidDate
	}
	return t.Format(dateLayout), nil
}

// BulkTarget is one order sharing a bulk expense. Amount is read by the
// manual policy, Percentage by the percentage policy and Weight overrides
// the order's headcount for the weight policy.
type BulkTarget struct {
	OrderID    string   `json:"orderId"`
	Amount     *float64 `json:"amount,omitempty"`
	Percentage *float64 `json:"percentage,omitempty"`
	Weight     *float64 `json:"weight,omitempty"`
}

type BulkInput struct {
	Policy        string       `json:"policy"`
	TotalAmount   float64      `json:"totalAmount"`
	Category      string       `json:"category"`
	Description   string       `json:"description"`
	PaymentDate   string       `json:"paymentDate"`
	PaymentMethod string       `json:"paymentMethod"`
	Targets       []BulkTarget `json:"targets"`
}

type Filter struct {
	OrderID      string
	Category     string
	AllocationID string
}

func (f Filter) match(e Expense) bool {
	return (f.OrderID == "" || (e.OrderID != nil && *e.OrderID == f.OrderID)) &&
		(f.Category == "" || strings.EqualFold(e.Category, f.Category)) &&
		(f.AllocationID == "" || (e.AllocationID != nil && *e.AllocationID == f.AllocationID))
}

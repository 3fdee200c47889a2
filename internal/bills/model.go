// Package bills issues bills for orders, records payments against them and
// consolidates several bills into a customer statement.
package bills

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending = "pending"
	StatusPartial = "partial"
	StatusPaid    = "paid"
)

var (
	ErrNotFound         = errors.New("bill not found")
	ErrCustomerMissing  = errors.New("customerId is required")
	ErrUnknownCustomer  = errors.New("customer does not exist")
	ErrNegativeAmount   = errors.New("amounts cannot be negative")
	ErrInvalidPayment   = errors.New("payment amount must be positive")
	ErrOverpayment      = errors.New("payment exceeds the outstanding balance")
	ErrBillExists       = errors.New("order already has a bill")
	ErrDuplicateNumber  = errors.New("bill number already taken")
	ErrNoBills          = errors.New("billIds must not be empty")
	ErrBelowPaidAmount  = errors.New("total cannot drop below the amount already paid")
	ErrOrderNotBillable = errors.New("cancelled orders cannot be billed")
	ErrDuplicateBill    = errors.New("a bill is listed more than once")
)

type Payment struct {
	ID     string    `json:"id"`
	BillID string    `json:"billId"`
	Amount float64   `json:"amount"`
	Method string    `json:"method"`
	PaidAt time.Time `json:"paidAt"`
	Notes  string    `json:"notes"`
}

type Bill struct {
	ID          string    `json:"id"`
	BillNumber  string    `json:"billNumber"`
	OrderID     *string   `json:"orderId,omitempty"`
	CustomerID  string    `json:"customerId"`
	Subtotal    float64   `json:"subtotal"`
	Discount    float64   `json:"discount"`
	TotalAmount float64   `json:"totalAmount"`
	PaidAmount  float64   `json:"paidAmount"`
	Status      string    `json:"status"`
	Payments    []Payment `json:"payments"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Balance is what the customer still owes.
func (b Bill) Balance() decimal.Decimal {
	return dec(b.TotalAmount).Sub(dec(b.PaidAmount)).Round(2)
}

// recompute derives the total and the payment status from the amounts.
func (b *Bill) recompute() {
	total := dec(b.Subtotal).Sub(dec(b.Discount))
	if total.IsNegative() {
		total = decimal.Zero
	}
	b.TotalAmount = total.Round(2).InexactFloat64()
	b.Status = StatusFor(total, dec(b.PaidAmount))
}

// StatusFor is the payment status of a bill of total with paid received.
func StatusFor(total, paid decimal.Decimal) string {
	switch {
	case paid.GreaterThanOrEqual(total):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	default:
		return StatusPending
	}
}

// applyPayment adds p to b, refusing anything above the balance.
func (b *Bill) applyPayment(p Payment) error {
	amount := dec(p.Amount)
	if !amount.IsPositive() {
		return ErrInvalidPayment
	}
	if amount.GreaterThan(b.Balance()) {
		return ErrOverpayment
	}
	b.PaidAmount = dec(b.PaidAmount).Add(amount).Round(2).InexactFloat64()
	b.Payments = append(b.Payments, p)
	b.recompute()
	return nil
}

type Input struct {
	OrderID    *string `json:"orderId"`
	CustomerID string  `json:"customerId"`
	Subtotal   float64 `json:"subtotal"`
	Discount   float64 `json:"discount"`
	Notes      string  `json:"notes"`
}

func (in Input) apply(b *Bill) error {
	if strings.TrimSpace(in.CustomerID) == "" {
		return ErrCustomerMissing
	}
	if in.Subtotal < 0 || in.Discount < 0 {
		return ErrNegativeAmount
	}
	b.OrderID = in.OrderID
	if b.OrderID != nil && *b.OrderID == "" {
		b.OrderID = nil
	}
	b.CustomerID = strings.TrimSpace(in.CustomerID)
	b.Subtotal = in.Subtotal
	b.Discount = in.Discount
	b.Notes = strings.TrimSpace(in.Notes)
	b.recompute()
	if dec(b.PaidAmount).GreaterThan(dec(b.TotalAmount)) {
		return ErrBelowPaidAmount
	}
	return nil
}

type PaymentInput struct {
	Amount float64    `json:"amount"`
	Method string     `json:"method"`
	PaidAt *time.Time `json:"paidAt"`
	Notes  string     `json:"notes"`
}

type Filter struct {
	CustomerID string
	OrderID    string
	Status     string
}

func (f Filter) match(b Bill) bool {
	return (f.CustomerID == "" || b.CustomerID == f.CustomerID) &&
		(f.OrderID == "" || (b.OrderID != nil && *b.OrderID == f.OrderID)) &&
		(f.Status == "" || b.Status == f.Status)
}

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

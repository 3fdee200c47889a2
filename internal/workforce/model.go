// Package workforce tracks event staff and what they have been paid.
package workforce

import (
	"errors"
	"strings"
	"time"

	"caterly/internal/meals"
)

var (
	ErrNotFound       = errors.New("worker not found")
	ErrNameMissing    = errors.New("worker name is required")
	ErrInvalidAmount  = errors.New("payment amount must be positive")
	ErrInvalidPayDate = errors.New("invalid payment date")
)

type Worker struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Phone     string    `json:"phone"`
	DailyRate float64   `json:"dailyRate"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type Input struct {
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	Phone     string  `json:"phone"`
	DailyRate float64 `json:"dailyRate"`
	IsActive  *bool   `json:"isActive"`
}

func (in Input) toWorker() (Worker, error) {
	w := Worker{
		Name:      strings.TrimSpace(in.Name),
		Role:      strings.TrimSpace(in.Role),
		Phone:     strings.TrimSpace(in.Phone),
		DailyRate: in.DailyRate,
		IsActive:  in.IsActive == nil || *in.IsActive,
	}
	if w.Name == "" {
		return w, ErrNameMissing
	}
	return w, nil
}

type Payment struct {
	ID          string    `json:"id"`
	WorkforceID string    `json:"workforceId"`
	OrderID     *string   `json:"orderId,omitempty"`
	Amount      float64   `json:"amount"`
	PaymentDate string    `json:"paymentDate"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"createdAt"`
}

type PaymentInput struct {
	OrderID     *string `json:"orderId"`
	Amount      float64 `json:"amount"`
	PaymentDate string  `json:"paymentDate"`
	Notes       string  `json:"notes"`
}

func (in PaymentInput) toPayment(workforceID string) (Payment, error) {
	if in.Amount <= 0 {
		return Payment{}, ErrInvalidAmount
	}
	date := time.Now().UTC().Format("2006-01-02")
	if strings.TrimSpace(in.PaymentDate) != "" {
		t, ok := meals.ParseDate(in.PaymentDate)
		if !ok {
			return Payment{}, ErrInvalidPayDate
		}
		date = t.Format("2006-01-02")
	}
	if in.OrderID != nil && *in.OrderID == "" {
		in.OrderID = nil
	}
	return Payment{
		WorkforceID: workforceID,
		OrderID:     in.OrderID,
		Amount:      in.Amount,
		PaymentDate: date,
		Notes:       strings.TrimSpace(in.Notes),
	}, nil
}

// Statement is a worker with their payment history, as rendered on the
// workforce document.
type Statement struct {
	Worker    Worker    `json:"worker"`
	Payments  []Payment `json:"payments"`
	TotalPaid float64   `json:"totalPaid"`
}

package bills

import "context"

// Repository defines all database operations for bills
type Repository interface {
	Create(ctx context.Context, b *Bill) error
	Get(ctx context.Context, id string) (*Bill, error)
	List(ctx context.Context, f Filter) ([]Bill, error)
	Update(ctx context.Context, b *Bill) error
	Delete(ctx context.Context, id string) error

	// FindByOrder returns ErrNotFound when the order has no bill.
	FindByOrder(ctx context.Context, orderID string) (*Bill, error)

	// AddPayment locks the bill, lets apply validate and add p, then stores
	// the payment and the new paid amount together.
	AddPayment(ctx context.Context, billID string, p *Payment, apply func(*Bill) error) (*Bill, error)
}

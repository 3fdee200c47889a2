package orders

import "context"

// Repository defines all database operations for orders
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	Update(ctx context.Context, o *Order) error
	UpdateStatus(ctx context.Context, id, status string) (*Order, error)
	Delete(ctx context.Context, id string) error

	// Split saves the shrunk original and inserts the detached order
	// atomically.
	Split(ctx context.Context, original, detached *Order) error

	// Merge inserts merged, moves everything that referenced the sources
	// onto it and deletes the sources, atomically.
	Merge(ctx context.Context, merged *Order, sourceIDs []string) error
}

package expenses

import "context"

type Repository interface {
	Create(ctx context.Context, e *Expense) error
	// CreateBatch stores every expense or none.
	CreateBatch(ctx context.Context, list []*Expense) error
	Get(ctx context.Context, id string) (*Expense, error)
	List(ctx context.Context, f Filter) ([]Expense, error)
	Update(ctx context.Context, e *Expense) error
	Delete(ctx context.Context, id string) error
}

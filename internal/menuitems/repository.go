package menuitems

import "context"

// Repository defines all database operations for menu items
type Repository interface {
	Create(ctx context.Context, items ...*MenuItem) error
	Get(ctx context.Context, id string) (*MenuItem, error)
	List(ctx context.Context, f Filter) ([]MenuItem, error)
	Update(ctx context.Context, item *MenuItem) error
	Delete(ctx context.Context, id string) error
}

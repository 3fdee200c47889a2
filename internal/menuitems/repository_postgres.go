package menuitems

import (
	"context"
	"fmt"
	"strings"

	"caterly/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const columns = `id, name, category, menu_type, description, price, is_active, created_at`

// Create inserts all items in one transaction so an import is all or nothing.
func (r *PostgresRepository) Create(ctx context.Context, items ...*MenuItem) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, item := range items {
			if item.ID == "" {
				item.ID = uuid.New().String()
			}
			err := tx.QueryRow(ctx, `
				INSERT INTO menu_items (id, name, category, menu_type, description, price, is_active)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING created_at
			`, item.ID, item.Name, item.Category, item.MenuType, item.Description, item.Price, item.IsActive,
			).Scan(&item.CreatedAt)
			if err != nil {
				return errors.Wrapf(err, "insert menu item %q", item.Name)
			}
		}
		return nil
	})
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*MenuItem, error) {
	item, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM menu_items WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return item, errors.Wrap(err, "get menu item")
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]MenuItem, error) {
	var (
		where []string
		args  []any
	)
	if f.MenuType != "" {
		args = append(args, f.MenuType)
		where = append(where, fmt.Sprintf("menu_type = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("lower(category) = lower($%d)", len(args)))
	}
	if f.ActiveOnly {
		where = append(where, "is_active")
	}

	query := `SELECT ` + columns + ` FROM menu_items`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY category, name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list menu items")
	}
	defer rows.Close()

	out := []MenuItem{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan menu item")
		}
		out = append(out, *item)
	}
	return out, errors.Wrap(rows.Err(), "list menu items")
}

func (r *PostgresRepository) Update(ctx context.Context, item *MenuItem) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE menu_items
		SET name = $2, category = $3, menu_type = $4, description = $5, price = $6, is_active = $7
		WHERE id = $1
		RETURNING created_at
	`, item.ID, item.Name, item.Category, item.MenuType, item.Description, item.Price, item.IsActive,
	).Scan(&item.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return errors.Wrap(err, "update menu item")
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete menu item")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scan(row pgx.Row) (*MenuItem, error) {
	item := &MenuItem{}
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.MenuType, &item.Description,
		&item.Price, &item.IsActive, &item.CreatedAt)
	return item, err
}

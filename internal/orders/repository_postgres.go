package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"caterly/internal/db"
	"caterly/internal/meals"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const columns = `id, customer_id, supervisor_id, event_name, venue, status,
	meal_type_amounts, items, stalls, discount, total_amount, notes, merged_from,
	created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, o *Order) error {
	return insert(ctx, r.pool, o)
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Order, error) {
	o, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Order, error) {
	var (
		where []string
		args  []any
	)
	if f.CustomerID != "" {
		args = append(args, f.CustomerID)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + columns + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scan(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, *o)
	}
	return out, errors.Wrap(rows.Err(), "list orders")
}

func (r *PostgresRepository) Update(ctx context.Context, o *Order) error {
	return update(ctx, r.pool, o)
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id, status string) (*Order, error) {
	o, err := scan(r.pool.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+columns, id, status))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	return o, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete order")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Split(ctx context.Context, original, detached *Order) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := update(ctx, tx, original); err != nil {
			return err
		}
		return insert(ctx, tx, detached)
	})
}

func (r *PostgresRepository) Merge(ctx context.Context, merged *Order, sourceIDs []string) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := insert(ctx, tx, merged); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE expenses SET order_id = $1 WHERE order_id = ANY($2)`, merged.ID, sourceIDs,
		); err != nil {
			return errors.Wrap(err, "move expenses to merged order")
		}
		tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = ANY($1)`, sourceIDs)
		if err != nil {
			return errors.Wrap(err, "delete merged orders")
		}
		if int(tag.RowsAffected()) != len(sourceIDs) {
			return ErrNotFound
		}
		return nil
	})
}

func insert(ctx context.Context, q querier, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	sessions, items, stalls, err := encodeJSON(o)
	if err != nil {
		return err
	}

	err = q.QueryRow(ctx, `
		INSERT INTO orders (id, customer_id, supervisor_id, event_name, venue, status,
			meal_type_amounts, items, stalls, discount, total_amount, notes, merged_from)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`, o.ID, o.CustomerID, o.SupervisorID, o.EventName, o.Venue, o.Status,
		sessions, items, stalls, o.Discount, o.TotalAmount, o.Notes, o.MergedFrom,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if db.IsForeignKeyViolation(err) {
		return ErrUnknownCustomer
	}
	return errors.Wrap(err, "insert order")
}

func update(ctx context.Context, q querier, o *Order) error {
	sessions, items, stalls, err := encodeJSON(o)
	if err != nil {
		return err
	}

	err = q.QueryRow(ctx, `
		UPDATE orders
		SET customer_id = $2, supervisor_id = $3, event_name = $4, venue = $5, status = $6,
			meal_type_amounts = $7, items = $8, stalls = $9, discount = $10,
			total_amount = $11, notes = $12, merged_from = $13, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`, o.ID, o.CustomerID, o.SupervisorID, o.EventName, o.Venue, o.Status,
		sessions, items, stalls, o.Discount, o.TotalAmount, o.Notes, o.MergedFrom,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if db.IsForeignKeyViolation(err) {
		return ErrUnknownCustomer
	}
	return errors.Wrap(err, "update order")
}

func encodeJSON(o *Order) (sessions, items, stalls []byte, err error) {
	if sessions, err = json.Marshal(o.MealTypeAmounts); err != nil {
		return nil, nil, nil, errors.Wrap(err, "encode meal sessions")
	}
	if items, err = json.Marshal(nonNil(o.Items)); err != nil {
		return nil, nil, nil, errors.Wrap(err, "encode items")
	}
	if stalls, err = json.Marshal(nonNil(o.Stalls)); err != nil {
		return nil, nil, nil, errors.Wrap(err, "encode stalls")
	}
	return sessions, items, stalls, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func scan(row pgx.Row) (*Order, error) {
	var (
		o                       Order
		sessions, items, stalls []byte
	)
	err := row.Scan(&o.ID, &o.CustomerID, &o.SupervisorID, &o.EventName, &o.Venue, &o.Status,
		&sessions, &items, &stalls, &o.Discount, &o.TotalAmount, &o.Notes, &o.MergedFrom,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(sessions, &o.MealTypeAmounts); err != nil {
		return nil, errors.Wrapf(err, "order %s meal_type_amounts", o.ID)
	}
	o.Items = []meals.LineItem{}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, errors.Wrapf(err, "order %s items", o.ID)
	}
	o.Stalls = []Stall{}
	if err := json.Unmarshal(stalls, &o.Stalls); err != nil {
		return nil, errors.Wrapf(err, "order %s stalls", o.ID)
	}
	return &o, nil
}

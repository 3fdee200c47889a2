package expenses

import (
	"context"
	"fmt"
	"strings"
	"time"

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

const columns = `id, order_id, category, description, amount, payment_date, payment_method,
	allocation_policy, allocation_id, percentage, created_at`

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *PostgresRepository) Create(ctx context.Context, e *Expense) error {
	return insert(ctx, r.pool, e)
}

func (r *PostgresRepository) CreateBatch(ctx context.Context, list []*Expense) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, e := range list {
			if err := insert(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func insert(ctx context.Context, q querier, e *Expense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	err := q.QueryRow(ctx, `
		INSERT INTO expenses (id, order_id, category, description, amount, payment_date,
			payment_method, allocation_policy, allocation_id, percentage)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, e.ID, e.OrderID, e.Category, e.Description, e.Amount, e.PaymentDate,
		e.PaymentMethod, e.AllocationPolicy, e.AllocationID, e.Percentage,
	).Scan(&e.CreatedAt)
	if db.IsForeignKeyViolation(err) {
		return ErrUnknownOrder
	}
	return errors.Wrap(err, "insert expense")
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Expense, error) {
	e, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM expenses WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get expense")
	}
	return e, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Expense, error) {
	var (
		where []string
		args  []any
	)
	if f.OrderID != "" {
		args = append(args, f.OrderID)
		where = append(where, fmt.Sprintf("order_id = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("lower(category) = lower($%d)", len(args)))
	}
	if f.AllocationID != "" {
		args = append(args, f.AllocationID)
		where = append(where, fmt.Sprintf("allocation_id = $%d", len(args)))
	}

	query := `SELECT ` + columns + ` FROM expenses`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY payment_date DESC, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list expenses")
	}
	defer rows.Close()

	out := []Expense{}
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan expense")
		}
		out = append(out, *e)
	}
	return out, errors.Wrap(rows.Err(), "list expenses")
}

func (r *PostgresRepository) Update(ctx context.Context, e *Expense) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE expenses
		SET order_id = $2, category = $3, description = $4, amount = $5,
			payment_date = $6, payment_method = $7
		WHERE id = $1
	`, e.ID, e.OrderID, e.Category, e.Description, e.Amount, e.PaymentDate, e.PaymentMethod)
	if db.IsForeignKeyViolation(err) {
		return ErrUnknownOrder
	}
	if err != nil {
		return errors.Wrap(err, "update expense")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete expense")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scan(row pgx.Row) (*Expense, error) {
	var (
		e    Expense
		date time.Time
	)
	err := row.Scan(&e.ID, &e.OrderID, &e.Category, &e.Description, &e.Amount, &date,
		&e.PaymentMethod, &e.AllocationPolicy, &e.AllocationID, &e.Percentage, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.PaymentDate = date.Format(dateLayout)
	return &e, nil
}

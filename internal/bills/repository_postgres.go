package bills

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

const columns = `id, bill_number, order_id, customer_id, subtotal, discount,
	total_amount, paid_amount, status, notes, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, b *Bill) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO bills (id, bill_number, order_id, customer_id, subtotal, discount,
			total_amount, paid_amount, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, b.ID, b.BillNumber, b.OrderID, b.CustomerID, b.Subtotal, b.Discount,
		b.TotalAmount, b.PaidAmount, b.Status, b.Notes,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	switch {
	case db.IsUniqueViolation(err):
		return ErrDuplicateNumber
	case db.IsForeignKeyViolation(err):
		return ErrUnknownCustomer
	case err != nil:
		return errors.Wrap(err, "insert bill")
	}
	if b.Payments == nil {
		b.Payments = []Payment{}
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Bill, error) {
	b, err := scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM bills WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get bill")
	}
	if b.Payments, err = r.payments(ctx, r.pool, id); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Bill, error) {
	var (
		where []string
		args  []any
	)
	if f.CustomerID != "" {
		args = append(args, f.CustomerID)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if f.OrderID != "" {
		args = append(args, f.OrderID)
		where = append(where, fmt.Sprintf("order_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + columns + ` FROM bills`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, bill_number DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list bills")
	}
	defer rows.Close()

	out := []Bill{}
	for rows.Next() {
		b, err := scan(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan bill")
		}
		b.Payments = []Payment{}
		out = append(out, *b)
	}
	return out, errors.Wrap(rows.Err(), "list bills")
}

func (r *PostgresRepository) Update(ctx context.Context, b *Bill) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE bills
		SET order_id = $2, customer_id = $3, subtotal = $4, discount = $5,
			total_amount = $6, status = $7, notes = $8, updated_at = now()
		WHERE id = $1
		RETURNING bill_number, paid_amount, created_at, updated_at
	`, b.ID, b.OrderID, b.CustomerID, b.Subtotal, b.Discount, b.TotalAmount, b.Status, b.Notes,
	).Scan(&b.BillNumber, &b.PaidAmount, &b.CreatedAt, &b.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case db.IsForeignKeyViolation(err):
		return ErrUnknownCustomer
	}
	return errors.Wrap(err, "update bill")
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete bill")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) FindByOrder(ctx context.Context, orderID string) (*Bill, error) {
	b, err := scan(r.pool.QueryRow(ctx, `
		SELECT `+columns+` FROM bills
		WHERE order_id = $1
		ORDER BY created_at
		LIMIT 1
	`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find bill by order")
	}
	b.Payments = []Payment{}
	return b, nil
}

func (r *PostgresRepository) AddPayment(ctx context.Context, billID string, p *Payment, apply func(*Bill) error) (*Bill, error) {
	var out *Bill
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		b, err := scan(tx.QueryRow(ctx, `SELECT `+columns+` FROM bills WHERE id = $1 FOR UPDATE`, billID))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "lock bill")
		}
		if b.Payments, err = r.payments(ctx, tx, billID); err != nil {
			return err
		}

		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.BillID = billID
		if err := apply(b); err != nil {
			return err
		}

		if p.PaidAt.IsZero() {
			err = tx.QueryRow(ctx, `
				INSERT INTO bill_payments (id, bill_id, amount, method, notes)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING paid_at
			`, p.ID, billID, p.Amount, p.Method, p.Notes).Scan(&p.PaidAt)
		} else {
			_, err = tx.Exec(ctx, `
				INSERT INTO bill_payments (id, bill_id, amount, method, paid_at, notes)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, p.ID, billID, p.Amount, p.Method, p.PaidAt, p.Notes)
		}
		if err != nil {
			return errors.Wrap(err, "insert bill payment")
		}
		b.Payments[len(b.Payments)-1] = *p

		err = tx.QueryRow(ctx, `
			UPDATE bills SET paid_amount = $2, status = $3, updated_at = now()
			WHERE id = $1
			RETURNING updated_at
		`, billID, b.PaidAmount, b.Status).Scan(&b.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, "update bill paid amount")
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type rowsQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PostgresRepository) payments(ctx context.Context, q rowsQuerier, billID string) ([]Payment, error) {
	rows, err := q.Query(ctx, `
		SELECT id, bill_id, amount, method, paid_at, notes
		FROM bill_payments
		WHERE bill_id = $1
		ORDER BY paid_at, id
	`, billID)
	if err != nil {
		return nil, errors.Wrap(err, "list bill payments")
	}
	defer rows.Close()

	out := []Payment{}
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.BillID, &p.Amount, &p.Method, &p.PaidAt, &p.Notes); err != nil {
			return nil, errors.Wrap(err, "scan bill payment")
		}
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "list bill payments")
}

func scan(row pgx.Row) (*Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.BillNumber, &b.OrderID, &b.CustomerID, &b.Subtotal, &b.Discount,
		&b.TotalAmount, &b.PaidAmount, &b.Status, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

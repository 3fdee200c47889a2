package workforce

import (
	"context"
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

const columns = `id, name, role, phone, daily_rate, is_active, created_at`

func (r *PostgresRepository) Create(ctx context.Context, w *Worker) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO workforce (id, name, role, phone, daily_rate, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, w.ID, w.Name, w.Role, w.Phone, w.DailyRate, w.IsActive).Scan(&w.CreatedAt)
	return errors.Wrap(err, "insert worker")
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Worker, error) {
	w, err := scanWorker(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM workforce WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get worker")
	}
	return w, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Worker, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM workforce ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "list workforce")
	}
	defer rows.Close()

	out := []Worker{}
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan worker")
		}
		out = append(out, *w)
	}
	return out, errors.Wrap(rows.Err(), "list workforce")
}

func (r *PostgresRepository) Update(ctx context.Context, w *Worker) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE workforce
		SET name = $2, role = $3, phone = $4, daily_rate = $5, is_active = $6
		WHERE id = $1
		RETURNING created_at
	`, w.ID, w.Name, w.Role, w.Phone, w.DailyRate, w.IsActive).Scan(&w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return errors.Wrap(err, "update worker")
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM workforce WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete worker")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) AddPayment(ctx context.Context, p *Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO workforce_payments (id, workforce_id, order_id, amount, payment_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, p.ID, p.WorkforceID, p.OrderID, p.Amount, p.PaymentDate, p.Notes).Scan(&p.CreatedAt)
	if db.IsForeignKeyViolation(err) {
		return ErrNotFound
	}
	return errors.Wrap(err, "insert worker payment")
}

func (r *PostgresRepository) ListPayments(ctx context.Context, workforceID string) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, workforce_id, order_id, amount, payment_date, notes, created_at
		FROM workforce_payments
		WHERE workforce_id = $1
		ORDER BY payment_date, created_at
	`, workforceID)
	if err != nil {
		return nil, errors.Wrap(err, "list worker payments")
	}
	defer rows.Close()

	out := []Payment{}
	for rows.Next() {
		var (
			p    Payment
			date time.Time
		)
		if err := rows.Scan(&p.ID, &p.WorkforceID, &p.OrderID, &p.Amount, &date, &p.Notes, &p.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan worker payment")
		}
		p.PaymentDate = date.Format("2006-01-02")
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "list worker payments")
}

func scanWorker(row pgx.Row) (*Worker, error) {
	w := &Worker{}
	err := row.Scan(&w.ID, &w.Name, &w.Role, &w.Phone, &w.DailyRate, &w.IsActive, &w.CreatedAt)
	return w, err
}

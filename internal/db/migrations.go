package db

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// migrations run in order on every start; each one must be idempotent.
var migrations = []string{
	// -------------------------------
	// USERS
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		password VARCHAR(255) NOT NULL,
		role VARCHAR(50) NOT NULL DEFAULT 'SUPERVISOR',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE users ADD COLUMN IF NOT EXISTS is_active BOOLEAN NOT NULL DEFAULT TRUE`,

	// -------------------------------
	// MASTER DATA
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS customers (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		phone VARCHAR(32) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS menu_items (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		category VARCHAR(100) NOT NULL DEFAULT '',
		menu_type VARCHAR(50) NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(12,2) NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS workforce (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		role VARCHAR(100) NOT NULL DEFAULT '',
		phone VARCHAR(32) NOT NULL DEFAULT '',
		daily_rate NUMERIC(12,2) NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS workforce_payments (
		id UUID PRIMARY KEY,
		workforce_id UUID NOT NULL REFERENCES workforce(id) ON DELETE CASCADE,
		order_id UUID NULL,
		amount NUMERIC(12,2) NOT NULL,
		payment_date DATE NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	// -------------------------------
	// ORDERS
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		customer_id UUID NOT NULL REFERENCES customers(id),
		supervisor_id UUID NULL REFERENCES users(id),
		event_name VARCHAR(255) NOT NULL DEFAULT '',
		venue TEXT NOT NULL DEFAULT '',
		status VARCHAR(32) NOT NULL DEFAULT 'pending',
		meal_type_amounts JSONB NOT NULL DEFAULT '{}',
		items JSONB NOT NULL DEFAULT '[]',
		stalls JSONB NOT NULL DEFAULT '[]',
		discount NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		merged_from TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders (customer_id)`,

	// -------------------------------
	// BILLS
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS bills (
		id UUID PRIMARY KEY,
		bill_number VARCHAR(64) UNIQUE NOT NULL,
		order_id UUID NULL REFERENCES orders(id) ON DELETE SET NULL,
		customer_id UUID NOT NULL REFERENCES customers(id),
		subtotal NUMERIC(12,2) NOT NULL DEFAULT 0,
		discount NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		paid_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
		status VARCHAR(32) NOT NULL DEFAULT 'pending',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bills_order ON bills (order_id)`,
	`CREATE TABLE IF NOT EXISTS bill_payments (
		id UUID PRIMARY KEY,
		bill_id UUID NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
		amount NUMERIC(12,2) NOT NULL,
		method VARCHAR(50) NOT NULL DEFAULT '',
		paid_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		notes TEXT NOT NULL DEFAULT ''
	)`,

	// -------------------------------
	// EXPENSES
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS expenses (
		id UUID PRIMARY KEY,
		order_id UUID NULL REFERENCES orders(id) ON DELETE CASCADE,
		category VARCHAR(100) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		amount NUMERIC(12,2) NOT NULL,
		payment_date DATE NOT NULL,
		payment_method VARCHAR(50) NOT NULL DEFAULT '',
		allocation_policy VARCHAR(32) NOT NULL DEFAULT '',
		allocation_id UUID NULL,
		percentage NUMERIC(7,2) NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_order ON expenses (order_id)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_allocation ON expenses (allocation_id)`,
}

// Apply executes every migration in order and stops at the first failure.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migration %d", i+1)
		}
	}
	return nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements are idempotent; EnsureSchema runs them on every start.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          BIGSERIAL PRIMARY KEY,
		telegram_id BIGINT NOT NULL UNIQUE,
		username    VARCHAR(50) NOT NULL,
		email       VARCHAR(120) NOT NULL UNIQUE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS budgets (
		id            BIGSERIAL PRIMARY KEY,
		user_id       BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		monthly_limit DOUBLE PRECISION NOT NULL CHECK (monthly_limit >= 0),
		current_total DOUBLE PRECISION NOT NULL DEFAULT 0,
		alert_sent    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name       VARCHAR(100) NOT NULL,
		amount     DOUBLE PRECISION NOT NULL,
		category   VARCHAR(50) NOT NULL DEFAULT 'Other',
		date       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_user_id ON expenses(user_id)`,
}

// EnsureSchema creates the tables the bot needs when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

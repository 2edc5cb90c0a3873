package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxOpenConns    = 25
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 1 * time.Minute
	defaultConnectAttempts = 1
	defaultConnectDelay    = 2 * time.Second
	pingTimeout            = 5 * time.Second
)

// PoolConfig sizes the connection pool and bounds how long startup waits for Postgres.
// Zero values fall back to defaults.
type PoolConfig struct {
	MaxOpenConns    int
	ConnectAttempts int
	ConnectDelay    time.Duration // grows linearly with each failed attempt
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = defaultMaxOpenConns
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = defaultConnectAttempts
	}
	if c.ConnectDelay <= 0 {
		c.ConnectDelay = defaultConnectDelay
	}
	return c
}

// NewPostgresConnection opens the pool and pings the database until it answers,
// the attempts run out or ctx is canceled.
func NewPostgresConnection(ctx context.Context, dataSourceName string, cfg PoolConfig, logger *logrus.Entry) (*sql.DB, error) {
	cfg = cfg.withDefaults()

	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Idle connections are capped at the open limit so bursts of bot commands reuse them.
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	if err = pingWithRetry(ctx, db, cfg, logger); err != nil {
		db.Close() // Close the connection if ping fails
		return nil, err
	}
	return db, nil
}

type pinger interface {
	PingContext(ctx context.Context) error
}

func pingWithRetry(ctx context.Context, db pinger, cfg PoolConfig, logger *logrus.Entry) error {
	var err error
	for attempt := 1; attempt <= cfg.ConnectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == cfg.ConnectAttempts {
			break
		}

		wait := cfg.ConnectDelay * time.Duration(attempt)
		logger.WithError(err).WithFields(logrus.Fields{
			"attempt":  attempt,
			"attempts": cfg.ConnectAttempts,
			"retry_in": wait,
		}).Warn("Database not reachable yet")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("gave up waiting for database: %w", ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("failed to ping database after %d attempts: %w", cfg.ConnectAttempts, err)
}

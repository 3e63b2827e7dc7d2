package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/whoisbot/core/logger"
)

// ConnectTimeout bounds a single connection attempt.
const ConnectTimeout = 5 * time.Second

// Connect opens the pool, configures it and verifies connectivity.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	took := time.Since(start)
	if err != nil {
		logger.Error(ctx, "db", "db.connect",
			slog.String("status", "fail"),
			slog.String("host", cfg.Host),
			slog.String("db", cfg.Name),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.Any("err", err),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)

	logger.Info(ctx, "db", "db.connect",
		slog.String("status", "ok"),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return db, nil
}

// waitRetryDelay separates WaitReady attempts.
const waitRetryDelay = 2 * time.Second

// WaitReady retries Connect until the server answers or timeout elapses.
func WaitReady(ctx context.Context, cfg Config, timeout time.Duration) (*sqlx.DB, error) {
	deadline := time.Now().Add(timeout)
	for attempt := 1; ; attempt++ {
		db, err := Connect(ctx, cfg)
		if err == nil {
			return db, nil
		}
		if !time.Now().Add(waitRetryDelay).Before(deadline) {
			return nil, fmt.Errorf("db not ready after %d attempts: %w", attempt, err)
		}
		logger.Warn(ctx, "db", "db.wait",
			slog.String("status", "retry"),
			slog.Int("attempt", attempt),
			slog.Duration("delay", waitRetryDelay),
		)
		timer := time.NewTimer(waitRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

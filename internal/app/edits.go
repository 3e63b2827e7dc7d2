package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/m3rciful/whoisbot/core/logger"
	"github.com/m3rciful/whoisbot/internal/config"
	"github.com/m3rciful/whoisbot/internal/pending"
)

const sweepInterval = time.Minute

// editStore is the pending-edit registry picked by configuration, with the
// resources it holds.
type editStore struct {
	registry pending.Registry
	redis    *redis.Client
	stop     context.CancelFunc
}

func openEdits(ctx context.Context, cfg *config.AppConfig) (*editStore, error) {
	ttl := cfg.Pending.TTL()
	switch cfg.Pending.Backend {
	case config.BackendRedis:
		cli, err := pending.DialRedis(ctx, pending.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		logger.Info(ctx, "pending", "backend",
			slog.String("backend", config.BackendRedis),
			slog.Duration("ttl", ttl),
		)
		return &editStore{registry: pending.NewRedis(cli, ttl), redis: cli}, nil
	case config.BackendMemory, "":
		mem := pending.NewMemory(ttl)
		sweepCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
		go sweep(sweepCtx, mem, sweepInterval)
		logger.Info(ctx, "pending", "backend",
			slog.String("backend", config.BackendMemory),
			slog.Duration("ttl", ttl),
		)
		return &editStore{registry: mem, stop: stop}, nil
	}
	return nil, fmt.Errorf("app: unknown pending backend %q", cfg.Pending.Backend)
}

// sweep drops expired in-memory edits until ctx is done.
func sweep(ctx context.Context, mem *pending.Memory, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := mem.Sweep(); n > 0 {
				logger.Debug(ctx, "pending", "sweep",
					slog.String("status", "ok"),
					slog.Int("dropped", n),
				)
			}
		}
	}
}

func (e *editStore) Close() error {
	if e == nil {
		return nil
	}
	if e.stop != nil {
		e.stop()
	}
	if e.redis != nil {
		return e.redis.Close()
	}
	return nil
}

package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/m3rciful/whoisbot/core/logger"
	"github.com/m3rciful/whoisbot/internal/model"
)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// DialRedis connects to Redis and verifies the connection.
func DialRedis(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("pending: redis ping %s: %w", opts.Addr, err)
	}
	return cli, nil
}

// Redis is a Registry shared between bot replicas.
type Redis struct {
	cli *redis.Client
	ttl time.Duration
	now func() time.Time
}

var _ Registry = (*Redis)(nil)

// Deletes the key only while it still holds the edit with id ARGV[1].
var luaCompareDelete = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then
	return 0
end
if cjson.decode(v)["id"] == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// NewRedis wraps cli. A non-positive ttl selects DefaultTTL.
func NewRedis(cli *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{cli: cli, ttl: ttl, now: time.Now}
}

func redisKey(adminID int64) string {
	return fmt.Sprintf("pending_edit:%d", adminID)
}

// Open stores a new edit under the administrator's key, replacing the old one.
func (r *Redis) Open(ctx context.Context, adminID, chatID int64, setting model.Setting) (Edit, error) {
	if !setting.Valid() {
		return Edit{}, fmt.Errorf("pending: unknown setting %q", setting)
	}
	e := newEdit(adminID, chatID, setting, r.now())
	data, err := json.Marshal(e)
	if err != nil {
		return Edit{}, fmt.Errorf("pending: encode edit: %w", err)
	}
	if err := r.cli.Set(ctx, redisKey(adminID), data, r.ttl).Err(); err != nil {
		return Edit{}, fmt.Errorf("pending: store edit: %w", err)
	}
	logger.Debug(ctx, "pending", "edit.open",
		slog.String("status", "ok"),
		slog.Int64("admin_id", adminID),
		slog.Int64("target_chat_id", chatID),
		slog.String("setting", string(setting)),
	)
	return e, nil
}

// Get loads the administrator's open edit.
func (r *Redis) Get(ctx context.Context, adminID int64) (Edit, error) {
	data, err := r.cli.Get(ctx, redisKey(adminID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Edit{}, ErrNoPendingEdit
	}
	if err != nil {
		return Edit{}, fmt.Errorf("pending: load edit: %w", err)
	}
	var e Edit
	if err := json.Unmarshal(data, &e); err != nil {
		return Edit{}, fmt.Errorf("pending: decode edit: %w", err)
	}
	return e, nil
}

// Complete atomically removes e if it is still current.
func (r *Redis) Complete(ctx context.Context, e Edit) (bool, error) {
	n, err := luaCompareDelete.Run(ctx, r.cli, []string{redisKey(e.AdminID)}, e.ID).Int64()
	if err != nil {
		return false, fmt.Errorf("pending: complete edit: %w", err)
	}
	return n > 0, nil
}

// Cancel deletes the administrator's open edit.
func (r *Redis) Cancel(ctx context.Context, adminID int64) (bool, error) {
	n, err := r.cli.Del(ctx, redisKey(adminID)).Result()
	if err != nil {
		return false, fmt.Errorf("pending: cancel edit: %w", err)
	}
	return n > 0, nil
}

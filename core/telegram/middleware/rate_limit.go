package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/whoisbot/core/logger"
	tghelpers "github.com/m3rciful/whoisbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude holds update kinds (see UpdateKind) that are never limited.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// OnDrop is called with the update kind of every dropped update.
	OnDrop func(kind string)

	now func() time.Time
}

// lastSeen remembers when each user was last let through. Entries older than
// the interval are swept at most once a minute.
type lastSeen struct {
	mu       sync.Mutex
	interval time.Duration
	at       map[int64]time.Time
	swept    time.Time
}

func (l *lastSeen) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.swept) > time.Minute {
		for id, t := range l.at {
			if now.Sub(t) >= l.interval {
				delete(l.at, id)
			}
		}
		l.swept = now
	}
	if t, ok := l.at[userID]; ok && now.Sub(t) < l.interval {
		return false
	}
	l.at[userID] = now
	return true
}

// RateLimitMiddleware drops updates arriving from the same user less than
// Interval apart. Updates without a sender always pass.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	seen := &lastSeen{interval: opts.Interval, at: make(map[int64]time.Time)}
	now := opts.now
	if now == nil {
		now = time.Now
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := UpdateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip || seen.allow(user.ID, now()) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), "tg", "update.dropped",
				slog.String("status", "rate_limited"),
				slog.String("kind", kind),
			)
			if opts.OnDrop != nil {
				opts.OnDrop(kind)
			}
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}

package middleware

import (
	"context"
	"sync/atomic"

	tghelpers "github.com/m3rciful/whoisbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "send_counters"

type sendCountersKey struct{}

// sendCounters tracks what a handler delivered. Outbound calls do not go
// through tele.Context, so the counters travel in context.Context too.
type sendCounters struct {
	messages atomic.Int32
	keyboard atomic.Bool
}

// UpdateKind names the update for metrics and rate-limit exclusions.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.MyChatMember != nil:
		return "my_chat_member"
	case upd.Message != nil:
		return "message"
	}
	return "other"
}

// MessageMetricsMiddleware counts updates by kind and attaches delivery
// counters read later by the handler summary.
func MessageMetricsMiddleware(onUpdate func(kind string)) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if onUpdate != nil {
				onUpdate(UpdateKind(c.Update()))
			}
			counters := &sendCounters{}
			c.Set(countersKey, counters)
			ctx := context.WithValue(tghelpers.BuildContext(c), sendCountersKey{}, counters)
			tghelpers.StoreContext(c, ctx)
			return next(c)
		}
	}
}

// CountSent records one delivered or edited message on the counters in ctx.
func CountSent(ctx context.Context, keyboard bool) {
	if ctx == nil {
		return
	}
	counters, ok := ctx.Value(sendCountersKey{}).(*sendCounters)
	if !ok {
		return
	}
	counters.messages.Add(1)
	if keyboard {
		counters.keyboard.Store(true)
	}
}

// GetCounters reads message count and keyboard presence flags from context.
func GetCounters(c tele.Context) (int, bool) {
	counters, ok := c.Get(countersKey).(*sendCounters)
	if !ok {
		return 0, false
	}
	return int(counters.messages.Load()), counters.keyboard.Load()
}

package middleware

import (
	"log/slog"
	"strings"

	"github.com/m3rciful/whoisbot/core/logger"
	tghelpers "github.com/m3rciful/whoisbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware opens the update context (rid plus update, user and chat
// ids) and logs a sampled update.received line. Routes wrap it again below
// the global chain; an update that already has its context passes through.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, seen := tghelpers.ContextFrom(c); seen {
			return next(c)
		}
		ctx := tghelpers.BuildContext(c)
		c.Set("rid", logger.RIDFrom(ctx))
		if logger.ShouldSampleDebug() {
			logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", receivedAttrs(c)...)
		}
		return next(c)
	}
}

// receivedAttrs describes the update without repeating the ids the context
// already carries.
func receivedAttrs(c tele.Context) []slog.Attr {
	upd := c.Update()
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("kind", UpdateKind(upd)),
	}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if u := c.Sender(); u != nil {
		attrs = append(attrs,
			slog.String("username", logger.SanitizeLimit(u.Username, 64)),
			slog.String("lang", u.LanguageCode),
		)
	}
	switch {
	case upd.MyChatMember != nil:
		if m := upd.MyChatMember; m.OldChatMember != nil && m.NewChatMember != nil {
			attrs = append(attrs,
				slog.String("old_role", string(m.OldChatMember.Role)),
				slog.String("new_role", string(m.NewChatMember.Role)),
			)
		}
	case upd.Callback != nil:
		key, payload := ParseCallback(upd.Callback)
		attrs = append(attrs,
			slog.String("cb_key", logger.SanitizeLimit(key, 128)),
			slog.String("payload", logger.SanitizeLimit(payload, 256)),
		)
	case upd.Message != nil:
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(c.Text(), 256)))
	}
	return attrs
}

// ParseCallback splits callback data into its action key and payload.
// Data produced by telebot's own buttons carries a leading \f.
func ParseCallback(cb *tele.Callback) (key, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	key, payload, _ = strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return strings.TrimSpace(key), payload
}

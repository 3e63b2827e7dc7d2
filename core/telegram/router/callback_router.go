package router

import (
	"log/slog"

	"github.com/m3rciful/whoisbot/core/logger"
	tg "github.com/m3rciful/whoisbot/core/telegram"
	"github.com/m3rciful/whoisbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute sends every inline button press to handle. Buttons carry
// their action as raw callback data, so one endpoint serves the whole menu.
// handle is responsible for answering the callback.
func CallbackRoute(handle tele.HandlerFunc) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key, payload := middleware.ParseCallback(c.Callback())
		s := newSummary("callback."+handlerName(key),
			slog.String("cb_key", key),
			slog.String("payload", logger.SanitizeLimit(payload, 128)),
		)
		return s.run(c, func() error { return handle(c) })
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}

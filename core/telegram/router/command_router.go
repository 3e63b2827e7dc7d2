package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/whoisbot/core/logger"
	tg "github.com/m3rciful/whoisbot/core/telegram"
	"github.com/m3rciful/whoisbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	// OnPrivateReject runs when a private-only command arrives from a group.
	OnPrivateReject tele.HandlerFunc
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
// Aliases get their own endpoints.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	privateOnly := middleware.PrivateOnlyMiddleware(middleware.PrivateOptions{
		OnReject: opts.OnPrivateReject,
	})

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		name, run := handlerName(cmd), def.Handler
		h := func(c tele.Context) error {
			return newSummary(name).run(c, func() error { return run(c) })
		}
		if def.PrivateOnly {
			h = privateOnly(h)
		}
		h = middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))

		routes = append(routes, tg.Route{Endpoint: cmd, Handler: h})
		for _, alias := range def.Aliases {
			if alias == "" {
				continue
			}
			if alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}

	logger.Info(context.Background(), "tg.wire", "complete",
		slog.Int("commands", len(reg.Commands())),
		slog.Int("routes", len(routes)),
	)

	return routes
}

// Package app wires the admin menu and onboarding flows to Telegram,
// PostgreSQL and the pending-edit backend.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/whoisbot/core/bootstrap"
	"github.com/m3rciful/whoisbot/core/buildinfo"
	"github.com/m3rciful/whoisbot/core/httpserver"
	"github.com/m3rciful/whoisbot/core/logger"
	tg "github.com/m3rciful/whoisbot/core/telegram"
	tghelpers "github.com/m3rciful/whoisbot/core/telegram/helpers"
	"github.com/m3rciful/whoisbot/core/telegram/sender"
	"github.com/m3rciful/whoisbot/internal/config"
	"github.com/m3rciful/whoisbot/internal/menu"
	"github.com/m3rciful/whoisbot/internal/metrics"
	"github.com/m3rciful/whoisbot/internal/onboarding"
	"github.com/m3rciful/whoisbot/internal/storage"
	"github.com/m3rciful/whoisbot/internal/texts"
	"github.com/m3rciful/whoisbot/migrations"

	tele "gopkg.in/telebot.v4"
)

const shutdownTimeout = 5 * time.Second

// App is the wired bot with the resources it owns.
type App struct {
	cfg      *config.AppConfig
	db       *sqlx.DB
	edits    *editStore
	ops      *httpserver.Server
	bot      *tele.Bot
	registry *tg.Registry
	handlers *Handlers
}

// Bootstrap connects every dependency and builds the handlers. Whatever was
// opened before a failure is released again.
func Bootstrap(ctx context.Context, cfg *config.AppConfig) (_ *App, err error) {
	a := &App{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     &cfg.Config,
		Database:   cfg.Database,
		Migrations: migrations.FS,
		WaitDB:     time.Duration(cfg.WaitDBSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	a.db = res.DB

	catalog, err := texts.Load(cfg.Defaults.Locale)
	if err != nil {
		return nil, err
	}

	if a.edits, err = openEdits(ctx, cfg); err != nil {
		return nil, err
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(buildinfo.Version, buildinfo.Commit)

	a.bot, err = tg.NewBot(&cfg.Config, tg.BotOptions{
		HTTP:    tg.HTTPClientOptions{OnRetry: metrics.IncTelegramRetry},
		OnError: onError,
	})
	if err != nil {
		return nil, err
	}

	snd := sender.New(sender.Options{
		MaxRetries: cfg.Telegram.SendRetries,
		Observe:    metrics.IncTelegramCall,
		OnRetry:    metrics.IncTelegramRetry,
	})
	store := storage.New(a.db)
	transport := NewTransport(a.bot, snd)

	router := menu.NewRouter(menu.Deps{
		Translator: catalog,
		Store:      store,
		Directory:  NewDirectory(a.bot, store, snd),
		Edits:      a.edits.registry,
		Transport:  transport,
	})
	onboard := onboarding.NewHandler(store, transport, catalog, cfg.Defaults.Limits())

	a.handlers = NewHandlers(router, onboard, catalog)
	a.registry = tg.NewRegistry()
	a.handlers.Register(a.registry)

	if cfg.Metrics.Listen != "" {
		a.ops, err = httpserver.Start(ctx, httpserver.Options{
			Listen: cfg.Metrics.Listen,
			Checks: a.checks(),
		})
		if err != nil {
			return nil, err
		}
	}

	logger.Info(ctx, "app", "bootstrap",
		slog.String("status", "ok"),
		slog.String("locale", catalog.Locale()),
		slog.String("pending_backend", cfg.Pending.Backend),
		slog.String("version", buildinfo.Version),
	)
	return a, nil
}

// TelegramRunOptions returns the middlewares and routes of the bot.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	if a.bot == nil || a.handlers == nil {
		return tg.RunOptions{}, errors.New("app: not bootstrapped")
	}
	return tg.RunOptions{
		Config:   &a.cfg.Config,
		Registry: a.registry,
		Bot:      a.bot,
		Middlewares: tg.DefaultMiddlewares(&a.cfg.Config, tg.MiddlewareHooks{
			OnDrop:   metrics.IncTelegramDropped,
			OnUpdate: metrics.IncTelegramUpdate,
		}),
		Routes: a.handlers.Routes(a.registry),
	}, nil
}

// Close releases the ops server, the pending-edit backend and the database.
func (a *App) Close() error {
	var errs []error
	if a.ops != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		errs = append(errs, a.ops.Shutdown(ctx))
		cancel()
		a.ops = nil
	}
	if a.edits != nil {
		errs = append(errs, a.edits.Close())
		a.edits = nil
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
		a.db = nil
	}
	return errors.Join(errs...)
}

func (a *App) checks() map[string]httpserver.Check {
	db := a.db
	checks := map[string]httpserver.Check{
		"postgres": func(ctx context.Context) error { return db.PingContext(ctx) },
	}
	if a.edits != nil && a.edits.redis != nil {
		cli := a.edits.redis
		checks["redis"] = func(ctx context.Context) error { return cli.Ping(ctx).Err() }
	}
	return checks
}

// onError logs handler errors telebot collected. Rejected input and denied
// presses were already answered and are not repeated here.
func onError(err error, c tele.Context) {
	var verr *menu.ValidationError
	if errors.As(err, &verr) || errors.Is(err, menu.ErrNotAdmin) {
		return
	}
	logger.Warn(tghelpers.BuildContext(c), "tg", "handler.error",
		slog.String("status", "fail"),
		slog.String("err", sender.SanitizeError(err)),
	)
}

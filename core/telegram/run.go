package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/whoisbot/core/config"
	"github.com/m3rciful/whoisbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const stopTimeout = 10 * time.Second

// Middleware is a named global middleware installed with bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route binds Handler to Endpoint through tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// BotOptions configures NewBot.
type BotOptions struct {
	HTTP HTTPClientOptions
	// OnError receives errors telebot could not hand back to a handler.
	OnError func(err error, c tele.Context)
}

// NewBot builds a bot with the poller and HTTP client derived from cfg.
func NewBot(cfg *coreconfig.Config, opts BotOptions) (*tele.Bot, error) {
	if cfg == nil {
		return nil, errors.New("telegram: nil config")
	}
	tc := cfg.Telegram
	po := PollerOptions{
		RunMode:                tc.RunMode,
		LongPollTimeoutSeconds: tc.LongPollTimeoutSeconds,
		AllowedUpdates:         tc.AllowedUpdates,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:   tc.Token,
		Poller:  BuildPoller(po),
		Client:  BuildHTTPClient(po.PollTimeout(), opts.HTTP),
		OnError: opts.OnError,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: new bot: %w", err)
	}
	return bot, nil
}

// RunOptions controls RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry
	// Bot is used as is when set; otherwise RunTelegram builds one.
	Bot        *tele.Bot
	BotOptions BotOptions

	Middlewares []Middleware
	Routes      []Route

	// KeepWebhook skips removing a stale webhook before long polling.
	KeepWebhook bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime is what lifecycle hooks get to see.
type Runtime struct {
	Bot      *tele.Bot
	Registry *Registry
}

// RunTelegram wires the bot and serves updates until ctx is done. A
// cancelled ctx is a clean stop and returns nil.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return errors.New("telegram: nil config")
	}
	rt := Runtime{Bot: opts.Bot, Registry: opts.Registry}
	if rt.Registry == nil {
		rt.Registry = NewRegistry()
	}
	if rt.Bot == nil {
		start := time.Now()
		bot, err := NewBot(opts.Config, opts.BotOptions)
		if err != nil {
			return err
		}
		rt.Bot = bot
		logger.Debug(ctx, "tg", "bot.built", slog.Duration("duration", logger.RoundMS(time.Since(start))))
	}

	logMode(ctx, rt.Bot)
	if _, polling := rt.Bot.Poller.(*tele.LongPoller); polling && !opts.KeepWebhook {
		removeWebhook(ctx, rt.Bot, opts.Config.Telegram.Token)
	}
	install(rt, opts)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}
	err := serve(ctx, rt.Bot)
	if opts.OnStop != nil {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		if stopErr := opts.OnStop(stopCtx, rt); stopErr != nil {
			return stopErr
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func install(rt Runtime, opts RunOptions) {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			rt.Bot.Use(mw.Use)
		}
	}
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			rt.Bot.Handle(r.Endpoint, r.Handler)
		}
	}
	SetupCommands(rt.Bot, rt.Registry)
}

// serve blocks in bot.Start until ctx is done or the poller gives up.
func serve(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	}
}

func logMode(ctx context.Context, bot *tele.Bot) {
	switch p := bot.Poller.(type) {
	case *tele.Webhook:
		var publicURL string
		if p.Endpoint != nil {
			publicURL = p.Endpoint.PublicURL
		}
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", publicURL),
		)
	case *tele.LongPoller:
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", "polling"),
			slog.Int("timeout_seconds", int(p.Timeout/time.Second)),
			slog.Any("allowed_updates", p.AllowedUpdates),
		)
	}
}

// removeWebhook clears a webhook left by an earlier deployment; Telegram
// refuses getUpdates while one is set. Pending updates are kept.
func removeWebhook(ctx context.Context, bot *tele.Bot, token string) {
	if err := bot.RemoveWebhook(false); err != nil {
		msg := err.Error()
		if token != "" {
			msg = strings.ReplaceAll(msg, token, "<redacted>")
		}
		logger.Warn(ctx, "tg", "webhook.remove",
			slog.String("status", "fail"),
			slog.String("err", msg),
		)
		return
	}
	logger.Info(ctx, "tg", "webhook.remove", slog.String("status", "ok"))
}

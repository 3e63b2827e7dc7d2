// Package logger is the structured logging layer shared by the bot and its
// runtime. Call sites log through the context-first helpers (Info, Warn, ...)
// which pick up update correlation ids stored in the context.
package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/whoisbot/core/buildinfo"
	coreconfig "github.com/m3rciful/whoisbot/core/config"
)

var (
	initOnce sync.Once
	closeMu  sync.Mutex
	closed   bool

	out     *lineWriter
	files   []io.Closer
	level   slog.LevelVar
	debugOK sampler
	trace   bool

	// L is the base logger. Nil until InitLogger runs; the helpers below are
	// no-ops in that case.
	L *slog.Logger
)

// settings is the resolved logging section of the config.
type settings struct {
	level     slog.Level
	format    logFormat
	order     []string
	sampleNum int
	sampleDen int
	profile   string
	file      string
}

func resolve(cfg *coreconfig.Config) settings {
	s := settings{
		level:     slog.LevelInfo,
		format:    formatJSON,
		order:     keyOrder,
		sampleNum: 1,
		sampleDen: 50,
	}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	s.profile = strings.ToLower(strings.TrimSpace(lc.Profile))
	if s.profile == "" {
		s.profile = "prod"
	}
	s.level = parseLevel(lc.Level)
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}
	if order := splitKeys(lc.KeysOrder); len(order) > 0 {
		s.order = order
	}
	if num, den, ok := parseRatio(lc.DebugSample); ok {
		s.sampleNum, s.sampleDen = num, den
	}
	if dir, name := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile); dir != "" && name != "" {
		s.file = filepath.Join(dir, name)
	}
	return s
}

func parseLevel(raw string) slog.Level {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if raw == "" || l.UnmarshalText([]byte(raw)) != nil {
		return slog.LevelInfo
	}
	return l
}

func splitKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// InitLogger configures L from cfg. Calls after the first are ignored.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		s := resolve(cfg)
		level.Set(s.level)
		debugOK.set(s.sampleNum, s.sampleDen)
		trace = envFlag("TRACE") || envFlag("LOG_TRACE")

		sinks := []io.Writer{os.Stdout}
		if s.file != "" {
			if f, err := openLogFile(s.file); err != nil {
				log.Printf("logger: %v", err)
			} else {
				sinks = append(sinks, f)
				files = append(files, f)
			}
		}
		out = newLineWriter(sinks, 64*1024)

		L = slog.New(newHandler(handlerOptions{
			level:  &level,
			out:    out,
			format: s.format,
			order:  s.order,
		}))
		slog.SetDefault(L)
		logStartup(s)
	})
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func logStartup(s settings) {
	Info(context.Background(), "app", "startup",
		slog.String("go_version", runtime.Version()),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("cfg_profile", s.profile),
		slog.String("log_level", s.level.String()),
		slog.String("log_format", string(s.format)),
		slog.Bool("trace", trace),
	)
}

// Shutdown flushes pending lines and closes log files. It is safe to call
// more than once.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if out != nil {
		errs = append(errs, out.Close())
	}
	for _, f := range files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// Background is the context for log calls made outside any update.
func Background() context.Context {
	return context.Background()
}

// LogEvent writes event through logg, or through the context logger when
// logg is nil.
func LogEvent(ctx context.Context, logg *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, lvl, "", attrs...)
}

// Component returns L scoped to name.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs event under component. The component attr wins over the one
// carried by a context logger.
func Event(ctx context.Context, component string, lvl slog.Level, event string, attrs ...slog.Attr) {
	logg := L
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		return
	}
	if component = strings.TrimSpace(component); component != "" {
		attrs = append([]slog.Attr{slog.String("component", component)}, attrs...)
	}
	LogEvent(ctx, logg, lvl, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug event should be
// logged. TRACE=1 in the environment lets every event through.
func ShouldSampleDebug() bool {
	return trace || debugOK.allow()
}

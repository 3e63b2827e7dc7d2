// Package sender executes outbound Telegram calls with bounded retries.
package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/m3rciful/whoisbot/core/logger"
	"github.com/m3rciful/whoisbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// Call results reported to Options.Observe.
const (
	ResultOK          = "ok"
	ResultNotModified = "not_modified"
	ResultFail        = "fail"
)

// Options controls retry behaviour.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on a single call including retries.
	MaxDuration time.Duration
	// MaxFloodWait caps how long a flood-control reply may delay a retry.
	MaxFloodWait time.Duration

	// Observe is called once per call with its final result.
	Observe func(method, result string)
	// OnRetry is called before every repeated attempt.
	OnRetry func(method string)
}

// Sender runs Telegram calls synchronously on the caller's goroutine, so the
// caller sees the final error.
type Sender struct {
	opts Options
	errs atomic.Uint64
}

// New returns a sender with defaults for zeroed options.
func New(opts Options) *Sender {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}
	if opts.MaxFloodWait <= 0 {
		opts.MaxFloodWait = 5 * time.Second
	}
	return &Sender{opts: opts}
}

// Do executes run, retrying transient failures. A "message is not modified"
// reply counts as success: the message already shows the wanted content.
func (s *Sender) Do(ctx context.Context, method string, run func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	deadlineCtx, cancel := context.WithTimeout(ctx, s.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := s.opts.MaxRetries + 1
	for attempt := 1; ; attempt++ {
		err := run()
		if err == nil {
			s.observe(method, ResultOK)
			if attempt > 1 {
				logger.Info(ctx, "tg.sender", "send.retry.success",
					slog.String("action", method),
					slog.Int("attempt", attempt),
					slog.Duration("elapsed", time.Since(start)),
				)
			}
			return nil
		}
		if IsNotModified(err) {
			s.observe(method, ResultNotModified)
			logger.Debug(ctx, "tg.sender", "send.not_modified", slog.String("action", method))
			return nil
		}

		delay, retry := retryDelay(err, s.opts.RetryBackoff*time.Duration(attempt), s.opts.MaxFloodWait)
		if !retry || attempt >= attempts {
			return s.fail(ctx, method, err, attempt, start)
		}
		if s.opts.OnRetry != nil {
			s.opts.OnRetry(method)
		}
		logger.Debug(ctx, "tg.sender", "send.retry.backoff",
			slog.String("action", method),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error_kind", errorKind(err)),
		)
		timer := time.NewTimer(delay)
		select {
		case <-deadlineCtx.Done():
			timer.Stop()
			return s.fail(ctx, method, errors.Join(err, deadlineCtx.Err()), attempt, start)
		case <-timer.C:
		}
	}
}

// ErrorCount returns the number of calls that failed after all retries.
func (s *Sender) ErrorCount() uint64 {
	return s.errs.Load()
}

func (s *Sender) fail(ctx context.Context, method string, err error, attempts int, start time.Time) error {
	s.errs.Add(1)
	s.observe(method, ResultFail)
	logger.Error(ctx, "tg.sender", "send.fail",
		slog.String("action", method),
		slog.String("err", SanitizeError(err)),
		slog.String("error_kind", errorKind(err)),
		slog.Int("attempts", attempts),
		slog.Duration("elapsed", time.Since(start)),
	)
	return err
}

func (s *Sender) observe(method, result string) {
	if s.opts.Observe != nil {
		s.opts.Observe(method, result)
	}
}

// IsNotModified reports whether Telegram rejected an edit because nothing changed.
func IsNotModified(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "message is not modified")
}

// retryDelay decides whether err is transient and how long to wait before the
// next attempt.
func retryDelay(err error, backoff, maxFlood time.Duration) (time.Duration, bool) {
	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		wait := time.Duration(floodErr.RetryAfter) * time.Second
		if wait > maxFlood {
			return 0, false
		}
		if wait <= 0 {
			wait = backoff
		}
		return wait, true
	}
	if netutil.Transient(err) {
		return backoff, true
	}
	status := httpStatusFromError(err)
	if status >= 500 || status == http.StatusTooManyRequests {
		return backoff, true
	}
	return 0, false
}

// errorKind labels err for logs.
func errorKind(err error) string {
	var (
		dnsErr *net.DNSError
		netErr net.Error
		opErr  *net.OpError
		alert  tls.AlertError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "dial"
	case errors.As(err, &alert):
		return "tls"
	}
	switch status := httpStatusFromError(err); {
	case status == http.StatusTooManyRequests:
		return "flood"
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	if netutil.Transient(err) {
		return "network"
	}
	return "unknown"
}

// SanitizeError renders err with bot tokens redacted.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

func httpStatusFromError(err error) int {
	if err == nil {
		return 0
	}

	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		return http.StatusTooManyRequests
	}

	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}

	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return http.StatusBadRequest
	}

	msg := err.Error()
	lastOpen := strings.LastIndex(msg, "(")
	lastClose := strings.LastIndex(msg, ")")
	if lastOpen >= 0 && lastClose > lastOpen+1 {
		if code, convErr := strconv.Atoi(strings.TrimSpace(msg[lastOpen+1 : lastClose])); convErr == nil {
			return code
		}
	}
	return 0
}

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	tsLayout = "2006-01-02T15:04:05.000Z07:00"
)

type handlerOptions struct {
	level  slog.Leveler
	out    *lineWriter
	format logFormat
	order  []string
}

// handler renders records as one flat line per event, either JSON or
// logfmt-style key=value pairs, with well-known keys first.
type handler struct {
	opts   handlerOptions
	preset fields
	group  string
}

func newHandler(opts handlerOptions) *handler {
	if opts.level == nil {
		opts.level = slog.LevelInfo
	}
	if opts.order == nil {
		opts.order = keyOrder
	}
	return &handler{opts: opts}
}

func (h *handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	if h.opts.out == nil {
		return errors.New("logger: writer not initialized")
	}
	ts := r.Time.UTC()
	f := make(fields, len(h.preset)+r.NumAttrs()+8)
	for k, v := range h.preset {
		f[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		f.add(h.group, a)
		return true
	})
	metaFrom(ctx).fill(f)

	f["ts"] = ts.Truncate(time.Millisecond).Format(tsLayout)
	f["level"] = r.Level.String()
	if f.text("event") == "" {
		f["event"] = r.Message
		if r.Message == "" {
			f["event"] = "unknown"
		}
	}
	if f.text("component") == "" {
		f["component"] = "app"
	}
	if rid := f.text("rid"); rid != "" {
		if short := compactRID(rid); short != rid {
			if h.opts.format == formatJSON {
				f.setDefault("rid_full", rid)
			}
			f["rid"] = short
		}
	}
	cleanEnums(f)

	var line []byte
	if h.opts.format == formatJSON {
		f["ts_unix_nano"] = ts.UnixNano()
		var err error
		if line, err = f.json(h.opts.order); err != nil {
			return err
		}
	} else {
		line = f.kv(h.opts.order)
	}
	return h.opts.out.Write(line)
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.preset = make(fields, len(h.preset)+len(attrs))
	for k, v := range h.preset {
		clone.preset[k] = v
	}
	for _, a := range attrs {
		clone.preset.add(h.group, a)
	}
	return &clone
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = joinKey(h.group, name)
	return &clone
}

// fields is one log line before encoding. Values are already plain
// strings, numbers or bools.
type fields map[string]any

func (f fields) setDefault(key string, v any) {
	if _, ok := f[key]; !ok {
		f[key] = v
	}
}

func (f fields) text(key string) string {
	s, _ := f[key].(string)
	return s
}

// add flattens a into f. Group members become dotted keys.
func (f fields) add(prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	key := joinKey(prefix, a.Key)
	if v.Kind() == slog.KindGroup {
		for _, member := range v.Group() {
			f.add(key, member)
		}
		return
	}
	if key == "" {
		return
	}
	if k, plain, ok := plainValue(key, v); ok {
		f[k] = plain
	}
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// plainValue converts v for encoding. Durations turn into whole milliseconds
// under a key ending in _ms. Empty strings and nils are dropped.
func plainValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		s := strings.TrimSpace(v.String())
		return key, s, s != ""
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return msKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case fmt.Stringer:
		s := x.String()
		return key, s, s != ""
	default:
		return key, fmt.Sprint(x), true
	}
}

func msKey(key string) string {
	switch {
	case strings.HasSuffix(key, "_ms"):
		return key
	case key == "duration":
		return "duration_ms"
	}
	return key + "_ms"
}

// keys returns the keys of f: those named in order first, then the rest
// sorted.
func (f fields) keys(order []string) []string {
	out := make([]string, 0, len(f))
	placed := make(map[string]bool, len(f))
	for _, k := range order {
		if _, ok := f[k]; ok && !placed[k] {
			out = append(out, k)
			placed[k] = true
		}
	}
	rest := make([]string, 0, len(f)-len(out))
	for k := range f {
		if !placed[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func (f fields) json(order []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.keys(order) {
		name, _ := json.Marshal(k)
		val, err := json.Marshal(f[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func (f fields) kv(order []string) []byte {
	var buf bytes.Buffer
	for i, k := range f.keys(order) {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(kvValue(f[k]))
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

func kvValue(v any) string {
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if strings.IndexFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

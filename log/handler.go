package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// formatterHandler adapts a LogFormatter to the slog.Handler interface, so
// Logger's actual output path runs every record through TextFormatter,
// JSONFormatter, or ColorFormatter rather than slog's own handlers.
type formatterHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	format LogFormatter
	attrs  []slog.Attr
	prefix string
}

func newFormatterHandler(w io.Writer, level slog.Leveler, format LogFormatter) *formatterHandler {
	return &formatterHandler{mu: &sync.Mutex{}, w: w, level: level, format: format}
}

func (h *formatterHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.level != nil {
		min = h.level.Level()
	}
	return level >= min
}

func (h *formatterHandler) Handle(_ context.Context, r slog.Record) error {
	// h.attrs were already prefixed with whatever group was active when
	// WithAttrs stored them; only the record's own attrs need the group
	// active right now.
	fields := make(map[string]interface{}, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		fields[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if h.prefix != "" {
			key = h.prefix + "." + key
		}
		fields[key] = a.Value.Any()
		return true
	})

	entry := LogEntry{
		Timestamp: r.Time,
		Level:     levelFromSlog(r.Level),
		Message:   r.Message,
		Fields:    fields,
	}
	line := h.format.Format(entry)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.w, line)
	return err
}

func (h *formatterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	prefixed := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		key := a.Key
		if h.prefix != "" {
			key = h.prefix + "." + key
		}
		prefixed[i] = slog.Attr{Key: key, Value: a.Value}
	}
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), prefixed...)
	return &next
}

func (h *formatterHandler) WithGroup(name string) slog.Handler {
	next := *h
	if next.prefix == "" {
		next.prefix = name
	} else {
		next.prefix = next.prefix + "." + name
	}
	return &next
}

// levelFromSlog maps slog's level down to the LogLevel formatters render.
// Logger never emits FATAL itself -- this repo treats process termination
// as the caller's own decision, not the logger's -- so slog.Level never
// produces it here.
func levelFromSlog(l slog.Level) LogLevel {
	switch {
	case l < slog.LevelInfo:
		return DEBUG
	case l < slog.LevelWarn:
		return INFO
	case l < slog.LevelError:
		return WARN
	default:
		return ERROR
	}
}

// formatterForEnvironment picks the rendering the coordinator and verifier
// binaries use for a given config.Environment value: colored text for a
// human watching a development terminal, plain text for test output, dense
// JSON lines for production where something else ships the logs onward.
func formatterForEnvironment(environment string) LogFormatter {
	switch environment {
	case "development":
		return &ColorFormatter{}
	case "production":
		return &JSONFormatter{}
	default:
		return &TextFormatter{}
	}
}

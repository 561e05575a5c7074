package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// FilterHandler drops records whose message or attribute values contain any of
// the configured substrings. Used to silence noisy third-party log lines.
type FilterHandler struct {
	next     slog.Handler
	patterns []string
	attrs    []slog.Attr
}

func NewFilterHandler(next slog.Handler, patterns []string) slog.Handler {
	clean := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			clean = append(clean, p)
		}
	}
	if len(clean) == 0 {
		return next
	}
	return &FilterHandler{next: next, patterns: clean}
}

// WithFilter wraps the logger's handler; an empty pattern list returns l unchanged.
func WithFilter(l *slog.Logger, patterns []string) *slog.Logger {
	return slog.New(NewFilterHandler(l.Handler(), patterns))
}

func (h *FilterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *FilterHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.matches(r.Message) {
		return nil
	}

	suppressed := false
	check := func(a slog.Attr) bool {
		if h.matches(a.Key) || h.matches(fmt.Sprint(a.Value.Any())) {
			suppressed = true
			return false
		}
		return true
	}
	for _, a := range h.attrs {
		if !check(a) {
			break
		}
	}
	if !suppressed {
		r.Attrs(check)
	}
	if suppressed {
		return nil
	}

	return h.next.Handle(ctx, r)
}

func (h *FilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &FilterHandler{
		next:     h.next.WithAttrs(attrs),
		patterns: h.patterns,
		attrs:    append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *FilterHandler) WithGroup(name string) slog.Handler {
	return &FilterHandler{
		next:     h.next.WithGroup(name),
		patterns: h.patterns,
		attrs:    h.attrs,
	}
}

func (h *FilterHandler) matches(s string) bool {
	for _, p := range h.patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

package logger

import (
	"context"
	"log/slog"
	"runtime"
)

// sourceHandler attaches the caller location to records at or above a level.
// The wrapped handler must have AddSource disabled.
type sourceHandler struct {
	next slog.Handler
	from slog.Level
}

func newSourceHandler(next slog.Handler, from slog.Level) slog.Handler {
	return &sourceHandler{next: next, from: from}
}

func (h *sourceHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.from && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		r.AddAttrs(slog.Any(slog.SourceKey, &slog.Source{
			Function: f.Function,
			File:     f.File,
			Line:     f.Line,
		}))
	}
	return h.next.Handle(ctx, r)
}

func (h *sourceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sourceHandler{next: h.next.WithAttrs(attrs), from: h.from}
}

func (h *sourceHandler) WithGroup(name string) slog.Handler {
	return &sourceHandler{next: h.next.WithGroup(name), from: h.from}
}

func (h *sourceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

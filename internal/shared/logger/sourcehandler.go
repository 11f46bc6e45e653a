package logger

import (
	"context"
	"log/slog"
	"runtime"
)

// sourceThresholdHandler attaches the caller's source location to records at
// or above a minimum level. Info-level traffic on the validate path is high
// volume, so routine records stay slim while warnings and errors carry the
// file and line an operator needs.
//
// The wrapped handler must be built with AddSource disabled. The location is
// resolved from the record's own caller PC, so it stays correct no matter how
// many handler wrappers sit between the log call and this one.
type sourceThresholdHandler struct {
	next slog.Handler
	min  slog.Level
}

// NewSourceThresholdHandler wraps next so that records at min or above carry
// a source attribute.
func NewSourceThresholdHandler(next slog.Handler, min slog.Level) slog.Handler {
	return &sourceThresholdHandler{next: next, min: min}
}

func (h *sourceThresholdHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.min && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		frame, _ := frames.Next()
		r.AddAttrs(slog.Attr{
			Key: slog.SourceKey,
			Value: slog.AnyValue(&slog.Source{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			}),
		})
	}
	return h.next.Handle(ctx, r)
}

func (h *sourceThresholdHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sourceThresholdHandler{next: h.next.WithAttrs(attrs), min: h.min}
}

func (h *sourceThresholdHandler) WithGroup(name string) slog.Handler {
	return &sourceThresholdHandler{next: h.next.WithGroup(name), min: h.min}
}

func (h *sourceThresholdHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

package logging

import (
	"context"
	"log/slog"
)

// redactingHandler wraps a slog.Handler, redacting sensitive attribute
// values before they reach it. Installing one as the process-wide default
// handler (see NewHandler) means every slog call anywhere in the binary is
// redacted the same way calls made through Logger are, not just the ones
// that go through this package's own API.
type redactingHandler struct {
	next     slog.Handler
	redactor *Redactor
}

func newRedactingHandler(next slog.Handler, redactor *Redactor) slog.Handler {
	return &redactingHandler{next: next, redactor: redactor}
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, r slog.Record) error {
	redacted := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, redacted)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &redactingHandler{next: h.next.WithAttrs(redacted), redactor: h.redactor}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{next: h.next.WithGroup(name), redactor: h.redactor}
}

func (h *redactingHandler) redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	if h.redactor.isSensitiveKey(a.Key) {
		redacted, _ := h.redactor.redactValue(a.Value.String()).(string)
		return slog.String(a.Key, redacted)
	}
	return slog.String(a.Key, h.redactor.RedactString(a.Value.String()))
}

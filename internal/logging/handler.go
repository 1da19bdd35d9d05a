// Package logging builds the structured logger injected into every component.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Redacted replaces the value of sensitive attributes.
const Redacted = "***REDACTED***"

var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"passwordhash":  {},
	"token":         {},
	"jwt":           {},
	"authorization": {},
	"cookie":        {},
	"secret":        {},
	"accesstoken":   {},
	"refreshtoken":  {},
	"apikey":        {},
}

// Options configures Setup.
type Options struct {
	Service string
	Env     string
	// Format is "json" or "text". Empty picks text for development and json otherwise.
	Format string
	// Level is a slog level name. Empty picks debug for development and info otherwise.
	Level string
}

// traceHandler stamps service metadata and trace context on every record.
type traceHandler struct {
	handler slog.Handler
	service string
	env     string
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("service", h.service),
		slog.String("env", h.env),
	)

	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", spanCtx.TraceID().String()))
	}
	if spanCtx.HasSpanID() {
		r.AddAttrs(slog.String("span_id", spanCtx.SpanID().String()))
	}

	return h.handler.Handle(ctx, r)
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{handler: h.handler.WithAttrs(attrs), service: h.service, env: h.env}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{handler: h.handler.WithGroup(name), service: h.service, env: h.env}
}

// Setup creates a configured slog.Logger. If w is nil, writes to os.Stderr.
func Setup(opts Options, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	development := strings.EqualFold(opts.Env, "development")

	format := strings.ToLower(opts.Format)
	if format == "" {
		format = "json"
		if development {
			format = "text"
		}
	}

	handlerOpts := &slog.HandlerOptions{
		Level:       ParseLevel(opts.Level, development),
		ReplaceAttr: redact,
	}

	var base slog.Handler
	if format == "text" {
		base = slog.NewTextHandler(w, handlerOpts)
	} else {
		base = slog.NewJSONHandler(w, handlerOpts)
	}

	return slog.New(&traceHandler{handler: base, service: opts.Service, env: opts.Env})
}

// ParseLevel resolves a level name, falling back to debug in development and info otherwise.
func ParseLevel(name string, development bool) slog.Level {
	var level slog.Level
	if name != "" && level.UnmarshalText([]byte(name)) == nil {
		return level
	}
	if development {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if IsSensitive(a.Key) {
		return slog.String(a.Key, Redacted)
	}
	return a
}

// IsSensitive reports whether values logged under key must be hidden.
func IsSensitive(key string) bool {
	normalized := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(key))
	_, ok := sensitiveKeys[normalized]
	return ok
}

// Package logging configures keyguard's slog logger and carries a per-request
// trace ID through contexts so every log line of a request can be joined.
// Output is JSON or text, on stdout or a daily-rotated file.
package logging

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const traceIDKey contextKey = "trace_id"

// RequestIDHeader carries the trace ID in both directions.
const RequestIDHeader = "X-Request-ID"

// Rotation policy for file output.
const (
	rotationTime = 24 * time.Hour
	maxAge       = 7 * 24 * time.Hour
)

// Logger is the process logger. Request handlers use FromContext instead so
// the trace ID is attached.
var Logger = slog.Default()

func init() {
	if err := Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), ""); err != nil {
		_ = Setup("", "", "")
	}
}

// ParseLevel maps debug/info/warn/error (any case) to a slog level. Empty
// means info.
func ParseLevel(level string) (slog.Level, error) {
	var lvl slog.Level
	if strings.TrimSpace(level) == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
	return lvl, nil
}

// Setup replaces Logger and the slog default. format is "json" (default) or
// "text". A non-empty file sends output to file.YYYYMMDD, rotated daily and
// kept for a week, with file itself a symlink to the current day.
func Setup(level, format, file string) error {
	out := io.Writer(os.Stdout)
	if file != "" {
		w, err := rotatelogs.New(
			file+".%Y%m%d",
			rotatelogs.WithLinkName(file),
			rotatelogs.WithRotationTime(rotationTime),
			rotatelogs.WithMaxAge(maxAge),
		)
		if err != nil {
			return fmt.Errorf("open rotating log file: %w", err)
		}
		out = w
	}
	l, err := newLogger(out, level, format)
	if err != nil {
		return err
	}
	Logger = l
	slog.SetDefault(l)
	return nil
}

func newLogger(out io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "", "json":
		return slog.New(slog.NewJSONHandler(out, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(out, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// NewTraceID returns a random W3C-sized trace ID as 32 hex characters.
func NewTraceID() string {
	var id trace.TraceID
	_, _ = rand.Read(id[:])
	return id.String()
}

// WithTraceID stores a trace ID in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext returns the stored trace ID, falling back to the trace
// ID of an active otel span.
func TraceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok && v != "" {
		return v
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// FromContext returns Logger annotated with the request's trace_id.
func FromContext(ctx context.Context) *slog.Logger {
	if id := TraceIDFromContext(ctx); id != "" {
		return Logger.With("trace_id", id)
	}
	return Logger
}

// Middleware assigns each request a trace ID: the incoming X-Request-ID, the
// active span's trace ID, or a fresh one, in that order. The ID is echoed in
// the response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if traceID == "" {
			traceID = TraceIDFromContext(r.Context())
		}
		if traceID == "" {
			traceID = NewTraceID()
		}
		w.Header().Set(RequestIDHeader, traceID)
		next.ServeHTTP(w, r.WithContext(WithTraceID(r.Context(), traceID)))
	})
}

package store

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ferro-labs/keyguard"
	"github.com/ferro-labs/keyguard/internal/metrics"
)

const tracerName = "github.com/ferro-labs/keyguard/internal/store"

// Instrumented wraps a ConfigStore, recording latency and error metrics and
// a span per call. Span attributes never include the stored key, which
// embeds the raw API key.
type Instrumented struct {
	next    keyguard.ConfigStore
	backend string
	tracer  trace.Tracer
}

// InstrumentOption configures an Instrumented store.
type InstrumentOption func(*Instrumented)

// WithTracerProvider overrides the global otel tracer provider.
func WithTracerProvider(tp trace.TracerProvider) InstrumentOption {
	return func(i *Instrumented) {
		if tp != nil {
			i.tracer = tp.Tracer(tracerName)
		}
	}
}

// Instrument wraps next; backend labels the metrics and spans.
func Instrument(next keyguard.ConfigStore, backend string, opts ...InstrumentOption) *Instrumented {
	i := &Instrumented{
		next:    next,
		backend: backend,
		tracer:  otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Get delegates to the wrapped store.
func (i *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := i.observe(ctx, "get", func(ctx context.Context) error {
		var err error
		value, err = i.next.Get(ctx, key)
		return err
	})
	return value, err
}

// Set delegates to the wrapped store.
func (i *Instrumented) Set(ctx context.Context, key string, value []byte) error {
	return i.observe(ctx, "set", func(ctx context.Context) error {
		return i.next.Set(ctx, key, value)
	})
}

// Keys delegates when the wrapped store can enumerate keys.
func (i *Instrumented) Keys(ctx context.Context, prefix string) ([]string, error) {
	lister, ok := i.next.(Lister)
	if !ok {
		return nil, ErrListUnsupported
	}
	var keys []string
	err := i.observe(ctx, "keys", func(ctx context.Context) error {
		var err error
		keys, err = lister.Keys(ctx, prefix)
		return err
	})
	return keys, err
}

// Close closes the wrapped store when it has a Close method.
func (i *Instrumented) Close() error {
	if c, ok := i.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (i *Instrumented) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := i.tracer.Start(ctx, "keyguard.store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("keyguard.store.backend", i.backend),
			attribute.String("keyguard.store.op", op),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.StoreDuration.WithLabelValues(i.backend, op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreErrors.WithLabelValues(i.backend, op).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// ErrListUnsupported is returned by Keys when the backend cannot enumerate.
var ErrListUnsupported = errors.New("store backend does not support listing keys")

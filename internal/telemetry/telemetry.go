package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// Telemetry owns the SDK providers installed as the otel globals.
type Telemetry struct {
	config *Config
	logger *zap.Logger

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	loggerProvider *sdklog.LoggerProvider

	degraded atomic.Bool
	shutdown atomic.Bool
}

// New validates cfg and, when enabled, installs tracer and meter providers
// exporting over OTLP and builds a logger provider for the zap bridge. Exporter construction failures degrade the instance
// instead of returning an error.
func New(ctx context.Context, cfg *Config, logger *zap.Logger, opts ...Option) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Telemetry{config: cfg, logger: logger}
	if !cfg.Enabled {
		return t, nil
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	exp, err := o.exporters(ctx, cfg)
	if err != nil {
		t.setDegraded(err)
		return t, nil
	}

	res := newResource(cfg)
	t.tracerProvider = newTracerProvider(exp.spans, cfg, res)
	t.meterProvider = newMeterProvider(exp.metrics, cfg, res)
	t.loggerProvider = newLoggerProvider(exp.logs, res)
	otel.SetTracerProvider(t.tracerProvider)
	otel.SetMeterProvider(t.meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("telemetry enabled",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("protocol", cfg.Protocol),
		zap.Float64("sample_rate", cfg.SampleRate),
	)
	return t, nil
}

// LoggerProvider returns the OTLP log provider, or nil when telemetry is
// disabled or degraded.
func (t *Telemetry) LoggerProvider() log.LoggerProvider {
	if t == nil || t.loggerProvider == nil {
		return nil
	}
	return t.loggerProvider
}

// provider is the lifecycle surface shared by the SDK providers.
type provider interface {
	ForceFlush(context.Context) error
	Shutdown(context.Context) error
}

// each applies op to every installed provider and joins the failures.
func (t *Telemetry) each(ctx context.Context, verb string, op func(provider, context.Context) error) error {
	type named struct {
		name string
		p    provider
	}
	var installed []named
	if t.tracerProvider != nil {
		installed = append(installed, named{"trace", t.tracerProvider})
	}
	if t.meterProvider != nil {
		installed = append(installed, named{"meter", t.meterProvider})
	}
	if t.loggerProvider != nil {
		installed = append(installed, named{"logger", t.loggerProvider})
	}
	var errs []error
	for _, n := range installed {
		if err := op(n.p, ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s provider %s: %w", n.name, verb, err))
		}
	}
	return errors.Join(errs...)
}

// ForceFlush exports everything pending.
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	if t == nil {
		return nil
	}
	return t.each(ctx, "flush", provider.ForceFlush)
}

// Shutdown flushes and stops the providers. Without a caller deadline it
// waits at most ShutdownWait. Only the first call does anything.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.shutdown.Swap(true) {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.ShutdownWait)
		defer cancel()
	}
	return t.each(ctx, "shutdown", provider.Shutdown)
}

// HealthStatus reports the state of the exporters.
type HealthStatus struct {
	Enabled  bool `json:"enabled"`
	Degraded bool `json:"degraded"`
}

// Health returns the current status.
func (t *Telemetry) Health() HealthStatus {
	if t == nil {
		return HealthStatus{}
	}
	return HealthStatus{
		Enabled:  t.config.Enabled && !t.shutdown.Load(),
		Degraded: t.degraded.Load(),
	}
}

func (t *Telemetry) setDegraded(err error) {
	t.degraded.Store(true)
	t.logger.Warn("telemetry degraded, continuing without export", zap.Error(err))
}

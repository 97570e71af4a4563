package telemetry

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fyrsmithlabs/vecfs/internal/config"
)

type memMetricExporter struct {
	mu      sync.Mutex
	batches []metricdata.ResourceMetrics
}

func (e *memMetricExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

func (e *memMetricExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

func (e *memMetricExporter) Export(_ context.Context, rm *metricdata.ResourceMetrics) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batches = append(e.batches, *rm)
	return nil
}

func (e *memMetricExporter) ForceFlush(context.Context) error { return nil }
func (e *memMetricExporter) Shutdown(context.Context) error   { return nil }

func (e *memMetricExporter) exported() []metricdata.ResourceMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.batches
}

func restoreGlobals(t *testing.T) {
	tp, mp, prop := otel.GetTracerProvider(), otel.GetMeterProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
		otel.SetTextMapPropagator(prop)
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"disabled skips checks", func(c *Config) { c.Endpoint = "" }, ""},
		{"defaults enabled", func(c *Config) { c.Enabled = true }, ""},
		{"missing endpoint", func(c *Config) { c.Enabled, c.Endpoint = true, "" }, "endpoint"},
		{"bad protocol", func(c *Config) { c.Enabled, c.Protocol = true, "udp" }, "protocol"},
		{"insecure remote", func(c *Config) { c.Enabled, c.Endpoint = true, "otel.example.com:4317" }, "remote"},
		{"secure remote", func(c *Config) { c.Enabled, c.Insecure, c.Endpoint = true, false, "otel.example.com:4317" }, ""},
		{"ipv6 loopback", func(c *Config) { c.Enabled, c.Endpoint = true, "[::1]:4317" }, ""},
		{"http scheme local", func(c *Config) {
			c.Enabled, c.Protocol, c.Endpoint = true, "http/protobuf", "http://127.0.0.1:4318"
		}, ""},
		{"sample rate", func(c *Config) { c.Enabled, c.SampleRate = true, 1.5 }, "sample rate"},
		{"metric interval", func(c *Config) { c.Enabled, c.MetricInterval = true, 0 }, "metric interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFromSettings(t *testing.T) {
	cfg := FromSettings(config.TelemetryConfig{
		Enabled:     true,
		Endpoint:    "localhost:4318",
		ServiceName: "vecfs-test",
		Protocol:    "http/protobuf",
		SampleRate:  0.25,
		Insecure:    true,
	})
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "localhost:4318", cfg.Endpoint)
	assert.Equal(t, "vecfs-test", cfg.ServiceName)
	assert.Equal(t, "http/protobuf", cfg.Protocol)
	assert.Equal(t, 0.25, cfg.SampleRate)
	require.NoError(t, cfg.Validate())

	def := FromSettings(config.TelemetryConfig{})
	assert.Equal(t, "vecfs", def.ServiceName)
	assert.Equal(t, 1.0, def.SampleRate)
}

func TestNew_Disabled(t *testing.T) {
	restoreGlobals(t)
	before := otel.GetTracerProvider()

	tel, err := New(context.Background(), NewDefaultConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, HealthStatus{}, tel.Health())
	assert.Same(t, before, otel.GetTracerProvider())
	assert.Nil(t, tel.LoggerProvider())
	require.NoError(t, tel.ForceFlush(context.Background()))
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.ServiceName = ""
	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestNew_ExportsSpansAndMetrics(t *testing.T) {
	restoreGlobals(t)
	spans := tracetest.NewInMemoryExporter()
	metrics := &memMetricExporter{}
	logs := &LogExporter{}
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.MetricInterval = time.Hour

	tel, err := New(context.Background(), cfg, nil,
		WithSpanExporter(spans), WithMetricExporter(metrics), WithLogExporter(logs))
	require.NoError(t, err)
	assert.Equal(t, HealthStatus{Enabled: true}, tel.Health())

	ctx := context.Background()
	_, span := tel.tracerProvider.Tracer("test").Start(ctx, "vecfs.save_resource")
	span.SetAttributes(attribute.String("tenant", "acme"))
	span.End()

	counter, err := tel.meterProvider.Meter("test").Int64Counter("vecfs.items.saved")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	require.NotNil(t, tel.LoggerProvider())
	var rec otellog.Record
	rec.SetBody(otellog.StringValue("vecfs started"))
	tel.LoggerProvider().Logger("test").Emit(ctx, rec)

	require.NoError(t, tel.ForceFlush(ctx))

	_, ok := logs.Record("vecfs started")
	assert.True(t, ok, "log record exported on flush")

	got := spans.GetSpans()
	require.Len(t, got, 1)
	assert.Equal(t, "vecfs.save_resource", got[0].Name)
	svc, ok := got[0].Resource.Set().Value("service.name")
	require.True(t, ok)
	assert.Equal(t, "vecfs", svc.AsString())

	batches := metrics.exported()
	require.NotEmpty(t, batches)
	_, found := Metric(batches[len(batches)-1], "vecfs.items.saved")
	assert.True(t, found)

	require.NoError(t, tel.Shutdown(ctx))
	require.NoError(t, tel.Shutdown(ctx))
	assert.False(t, tel.Health().Enabled)
}

func TestSampler(t *testing.T) {
	assert.True(t, strings.HasPrefix(sampler(1).Description(), "ParentBased{root:AlwaysOnSampler"))
	assert.True(t, strings.HasPrefix(sampler(0).Description(), "ParentBased{root:AlwaysOffSampler"))
	assert.True(t, strings.HasPrefix(sampler(0.5).Description(), "ParentBased{root:TraceIDRatioBased"))
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder(t)
	ctx := context.Background()

	_, span := otel.Tracer("recorder-test").Start(ctx, "op")
	span.SetAttributes(attribute.Int64("items", 2))
	span.End()
	rec.AssertSpanAttribute(t, "op", "items", int64(2))
	assert.Equal(t, []string{"op"}, rec.SpanNames())

	hist, err := otel.Meter("recorder-test").Float64Histogram("vecfs.test.duration")
	require.NoError(t, err)
	hist.Record(ctx, 0.5)
	_, ok := Metric(rec.Collect(t), "vecfs.test.duration")
	assert.True(t, ok)
}

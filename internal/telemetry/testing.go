package telemetry

import (
	"context"
	"sync"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// Recorder installs in-memory global providers for a test and restores
// the previous ones on cleanup.
type Recorder struct {
	Spans  *tracetest.SpanRecorder
	Reader *sdkmetric.ManualReader
}

// NewRecorder installs recording providers until tb finishes.
func NewRecorder(tb testing.TB) *Recorder {
	tb.Helper()
	r := &Recorder{
		Spans:  tracetest.NewSpanRecorder(),
		Reader: sdkmetric.NewManualReader(),
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(r.Spans))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(r.Reader))

	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	tb.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})
	return r
}

// Span returns the first ended span named name, or nil.
func (r *Recorder) Span(name string) sdktrace.ReadOnlySpan {
	for _, s := range r.Spans.Ended() {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// SpanNames lists ended spans in order.
func (r *Recorder) SpanNames() []string {
	ended := r.Spans.Ended()
	names := make([]string, len(ended))
	for i, s := range ended {
		names[i] = s.Name()
	}
	return names
}

// AssertSpanAttribute fails tb unless span name carries key=want.
func (r *Recorder) AssertSpanAttribute(tb testing.TB, name, key string, want interface{}) {
	tb.Helper()
	s := r.Span(name)
	if s == nil {
		tb.Fatalf("span %q not found, got %v", name, r.SpanNames())
	}
	for _, kv := range s.Attributes() {
		if string(kv.Key) == key {
			if got := attrValue(kv.Value); got != want {
				tb.Errorf("span %q attribute %q: got %v, want %v", name, key, got, want)
			}
			return
		}
	}
	tb.Errorf("span %q missing attribute %q", name, key)
}

// Collect reads the current metrics.
func (r *Recorder) Collect(tb testing.TB) metricdata.ResourceMetrics {
	tb.Helper()
	var rm metricdata.ResourceMetrics
	if err := r.Reader.Collect(context.Background(), &rm); err != nil {
		tb.Fatalf("collecting metrics: %v", err)
	}
	return rm
}

// Metric finds a metric by name in rm.
func Metric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func attrValue(v attribute.Value) interface{} {
	switch v.Type() {
	case attribute.STRING:
		return v.AsString()
	case attribute.INT64:
		return v.AsInt64()
	case attribute.FLOAT64:
		return v.AsFloat64()
	case attribute.BOOL:
		return v.AsBool()
	default:
		return v.AsInterface()
	}
}

// LogExporter keeps exported log records in memory.
type LogExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

// NewLoggerProvider returns a provider that exports synchronously to e.
func (e *LogExporter) NewLoggerProvider() *sdklog.LoggerProvider {
	return sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(e)))
}

// Export implements sdklog.Exporter.
func (e *LogExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *LogExporter) ForceFlush(context.Context) error { return nil }
func (e *LogExporter) Shutdown(context.Context) error   { return nil }

// Records returns a copy of everything exported so far.
func (e *LogExporter) Records() []sdklog.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sdklog.Record(nil), e.records...)
}

// Record returns the first record whose body is msg.
func (e *LogExporter) Record(msg string) (sdklog.Record, bool) {
	for _, r := range e.Records() {
		if r.Body().Kind() == log.KindString && r.Body().AsString() == msg {
			return r, true
		}
	}
	return sdklog.Record{}, false
}

// Attr returns the value of attribute key on r.
func Attr(r sdklog.Record, key string) (log.Value, bool) {
	var (
		v     log.Value
		found bool
	)
	r.WalkAttributes(func(kv log.KeyValue) bool {
		if kv.Key == key {
			v, found = kv.Value, true
			return false
		}
		return true
	})
	return v, found
}

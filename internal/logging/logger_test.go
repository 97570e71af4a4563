package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/vecfs/internal/config"
	"github.com/fyrsmithlabs/vecfs/internal/telemetry"
	"github.com/fyrsmithlabs/vecfs/internal/tenant"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Sync() error { return nil }

func (b *syncBuffer) lines(t *testing.T) []map[string]interface{} {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func newCaptured(t *testing.T, mutate func(*Config)) (*Logger, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	cfg := NewDefaultConfig()
	cfg.Writer = buf
	cfg.Sampling.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	l, err := NewLogger(cfg, nil)
	require.NoError(t, err)
	return l, buf
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format")
}

func TestNewLogger_OTELOnlyWithoutProvider(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output = OutputConfig{OTEL: true}
	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
}

func TestNewLogger_BridgesToOTel(t *testing.T) {
	exp := &telemetry.LogExporter{}
	cfg := NewDefaultConfig()
	cfg.Output = OutputConfig{OTEL: true}
	l, err := NewLogger(cfg, exp.NewLoggerProvider())
	require.NoError(t, err)

	l.Info(context.Background(), "item saved", zap.String("path", "/docs/a"))

	rec, ok := exp.Record("item saved")
	require.True(t, ok, "record exported through the bridge")
	assert.Equal(t, otellog.SeverityInfo, rec.Severity())
	path, ok := telemetry.Attr(rec, "path")
	require.True(t, ok)
	assert.Equal(t, "/docs/a", path.AsString())
}

func TestLogger_ConstantFieldsAndLevel(t *testing.T) {
	l, buf := newCaptured(t, nil)
	ctx := context.Background()

	l.Debug(ctx, "hidden")
	l.Info(ctx, "saved", zap.String("path", "/docs/a"))

	lines := buf.lines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "saved", lines[0]["msg"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "vecfs", lines[0]["service"])
	assert.Equal(t, "/docs/a", lines[0]["path"])
}

func TestLogger_TraceLevel(t *testing.T) {
	l, buf := newCaptured(t, func(c *Config) { c.Level = TraceLevel })
	l.Trace(context.Background(), "visiting node")

	lines := buf.lines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "trace", lines[0]["level"])
	assert.True(t, l.Enabled(TraceLevel))
}

func TestLogger_ContextFields(t *testing.T) {
	l, buf := newCaptured(t, nil)

	ctx, err := tenant.WithTenant(context.Background(), "acme")
	require.NoError(t, err)
	ctx = WithRequestID(ctx, "req-42")
	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	l.Warn(ctx, "slow search")

	lines := buf.lines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "acme", lines[0]["tenant"])
	assert.Equal(t, "req-42", lines[0]["request.id"])
	assert.Equal(t, traceID.String(), lines[0]["trace_id"])
	assert.Equal(t, spanID.String(), lines[0]["span_id"])
	assert.Equal(t, true, lines[0]["trace_sampled"])
}

func TestLogger_RedactsFieldsAndMessages(t *testing.T) {
	l, buf := newCaptured(t, nil)
	ctx := context.Background()

	l.With(zap.String("api_key", "with-secret")).Info(ctx, "configured")
	l.Info(ctx, "calling", zap.String("token", "call-secret"), zap.String("header", "Bearer abc.def"))
	l.Info(ctx, "Authorization: Bearer xyz")
	l.Info(ctx, "provider", Secret("key", config.Secret("hunter22")))

	lines := buf.lines(t)
	require.Len(t, lines, 4)
	assert.Equal(t, redactedValue, lines[0]["api_key"])
	assert.Equal(t, redactedValue, lines[1]["token"])
	assert.Equal(t, "[REDACTED:pattern]", lines[1]["header"])
	assert.Equal(t, "[REDACTED:pattern]", lines[2]["msg"])
	assert.Equal(t, "[REDACTED:8]", lines[3]["key"])

	out := buf.buf.String()
	assert.NotContains(t, out, "with-secret")
	assert.NotContains(t, out, "call-secret")
	assert.NotContains(t, out, "hunter22")
}

func TestLogger_RedactionDisabled(t *testing.T) {
	l, buf := newCaptured(t, func(c *Config) { c.Redaction.Enabled = false })
	l.Info(context.Background(), "calling", zap.String("token", "visible"))

	lines := buf.lines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "visible", lines[0]["token"])
}

func TestLogger_SamplingKeepsErrors(t *testing.T) {
	l, buf := newCaptured(t, func(c *Config) {
		c.Sampling.Enabled = true
		c.Sampling.Initial = 2
		c.Sampling.Thereafter = 1000
	})
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		l.Info(ctx, "repeated")
		l.Error(ctx, "failing")
	}

	var infos, errs int
	for _, line := range buf.lines(t) {
		switch line["msg"] {
		case "repeated":
			infos++
		case "failing":
			errs++
		}
	}
	assert.Equal(t, 2, infos)
	assert.Equal(t, 10, errs)
}

func TestLogger_NamedAndUnderlying(t *testing.T) {
	l, buf := newCaptured(t, nil)
	l.Named("kvstore").Underlying().Info("opened")

	lines := buf.lines(t)
	require.Len(t, lines, 1)
	assert.Equal(t, "kvstore", lines[0]["logger"])
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"trace", TraceLevel, false},
		{"TRACE", TraceLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := LevelFromString(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromSettings(t *testing.T) {
	cfg, err := FromSettings(config.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)

	_, err = FromSettings(config.LoggingConfig{Level: "nope"})
	require.Error(t, err)

	_, err = FromSettings(config.LoggingConfig{Format: "xml"})
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Redaction.Patterns = []string{"("}
	require.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Sampling.Tick = 0
	require.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Fields = map[string]string{"": "x"}
	require.Error(t, cfg.Validate())
}

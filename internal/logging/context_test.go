package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/vecfs/internal/tenant"
)

func TestWithRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "abc-123", RequestIDFromContext(WithRequestID(ctx, "abc-123")))
	assert.Empty(t, RequestIDFromContext(WithRequestID(ctx, "")))
	assert.Empty(t, RequestIDFromContext(WithRequestID(ctx, "has space")))
	assert.Empty(t, RequestIDFromContext(WithRequestID(ctx, strings.Repeat("a", 129))))
}

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestContextFields_Tenant(t *testing.T) {
	ctx, err := tenant.WithTenant(context.Background(), "team-a")
	require.NoError(t, err)

	fields := ContextFields(ctx)
	require.Len(t, fields, 1)
	assert.Equal(t, "tenant", fields[0].Key)
	assert.Equal(t, "team-a", fields[0].String)
}

func TestFromContext(t *testing.T) {
	nop := FromContext(context.Background())
	require.NotNil(t, nop)
	nop.Info(context.Background(), "dropped")

	rec := NewRecorder()
	ctx := WithLogger(context.Background(), rec.Logger)
	FromContext(ctx).Info(ctx, "kept")
	assert.True(t, rec.Contains(zapcore.InfoLevel, "kept"))
}

func TestRecorder_Fields(t *testing.T) {
	rec := NewRecorder()
	ctx, err := tenant.WithTenant(context.Background(), "acme")
	require.NoError(t, err)

	rec.Trace(ctx, "walk")
	assert.True(t, rec.Contains(TraceLevel, "walk"))
	assert.False(t, rec.Contains(zapcore.DebugLevel, "walk"))
	v, ok := rec.Field("walk", "tenant")
	require.True(t, ok)
	assert.Equal(t, "acme", v)
	assert.Equal(t, 1, rec.Count("walk"))

	assert.Len(t, rec.Drain(), 1)
	assert.Empty(t, rec.Entries())
}

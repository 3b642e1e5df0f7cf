package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "pharmledger/internal/core/context"
	"pharmledger/internal/core/id"
)

func TestFromContext_EnrichesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := NewWithCore(core)

	userID := id.New()
	ctx := appctx.WithTrace(context.Background(), &appctx.TraceContext{TraceID: "t-1", RequestID: "r-1"})
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: userID, Role: "pharmacist"})
	ctx = WithLogger(ctx, base)

	Info(ctx, "sale recorded", "number", "SALE-20261019-0001")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "t-1", fields["trace_id"])
	assert.Equal(t, "r-1", fields["request_id"])
	assert.Equal(t, userID.String(), fields["user_id"])
	assert.Equal(t, "pharmacist", fields["role"])
	assert.Equal(t, "SALE-20261019-0001", fields["number"])
}

func TestWithComponent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	NewWithCore(core).WithComponent("worker").Infow("started")

	if logs.Len() != 1 || logs.All()[0].ContextMap()["component"] != "worker" {
		t.Errorf("component field missing: %+v", logs.All())
	}
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "verbose", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.False(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Desugar().Core().Enabled(zapcore.InfoLevel))
}

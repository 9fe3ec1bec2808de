package viewkit

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger(t *testing.T) {
	t.Run("levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "warning", "error", "unknown"} {
			logger, err := NewLogger(level, map[string]any{"service": "viewkit"})
			assert.NoError(t, err)
			assert.NotNil(t, logger)
		}
		assert.Equal(t, zap.WarnLevel, getLevel("WARNING"))
		assert.Equal(t, zap.InfoLevel, getLevel(""))
	})
	t.Run("context fields", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		logger := newZapLogger(zap.New(core), map[string]any{"service": "viewkit"})
		ctx := WithLogFields(context.Background(), map[string]any{"view": "by_type", "query_id": "q1"})
		ctx = WithLogFields(ctx, map[string]any{"query_id": "q2"})
		logger.Debug(ctx, "query executed", map[string]any{"rows": 3})
		logger.Error(ctx, "query failed", fmt.Errorf("boom"), map[string]any{"view": "override"})

		entries := logs.All()
		if assert.Len(t, entries, 2) {
			assert.Equal(t, map[string]any{
				"service":  "viewkit",
				"view":     "by_type",
				"query_id": "q2",
				"rows":     int64(3),
			}, entries[0].ContextMap())
			assert.Equal(t, "override", entries[1].ContextMap()["view"])
			assert.Equal(t, "boom", entries[1].ContextMap()["error"])
		}
	})
	t.Run("nop", func(t *testing.T) {
		NewNopLogger().Error(context.Background(), "discarded", fmt.Errorf("this is an error"), nil)
		assert.Nil(t, LogFields(context.Background()))
	})
}

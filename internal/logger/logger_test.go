package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestUseAndRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Use(zap.New(core))
	t.Cleanup(func() { Use(nil) })

	Info("login", zap.String("event", "login_success"))
	WithRequestID("req-1").Warn("slow")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "login_success", entries[0].ContextMap()["event"])
	assert.Equal(t, "req-1", entries[1].ContextMap()["request_id"])
}

func TestInit(t *testing.T) {
	t.Cleanup(func() { Use(nil) })
	require.NoError(t, Init("production"))
	assert.NotNil(t, Logger)
	require.NoError(t, Init("development"))
}

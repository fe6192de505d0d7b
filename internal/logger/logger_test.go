package logger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/benithors/dotquote/internal/logger"
)

func TestSetup(t *testing.T) {
	for _, env := range []string{logger.DevelopmentEnvironment, logger.ProductionEnvironment} {
		require.NoError(t, logger.Setup(env, zapcore.InfoLevel), env)
		require.NotNil(t, logger.Get(context.Background()))
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, zapcore.DebugLevel, logger.ParseLevel("debug"))
	require.Equal(t, zapcore.WarnLevel, logger.ParseLevel("warn"))
	require.Equal(t, zapcore.InfoLevel, logger.ParseLevel("loud"))
}

func TestWithFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logger.WithLogger(context.Background(), zap.New(core))
	ctx = logger.WithFields(ctx, zap.String("provider", "porkbun"))

	logger.Warn(ctx, "price table refresh failed")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "price table refresh failed", entries[0].Message)
	require.Equal(t, "porkbun", entries[0].ContextMap()["provider"])
}

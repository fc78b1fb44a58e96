package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTrack(t *testing.T) {
	observedZapCore, observedLogs := observer.New(zap.InfoLevel)
	observedLogger := zap.New(observedZapCore)

	ctx := With(t.Context(), NewZapLogger(observedLogger))
	Track(ctx, "foo", "bar") // Should be passed on to child logger.

	ctx2 := With(ctx, FromContext(ctx).Named("nested"))
	Track(ctx2, "baz", "bam") // Should not propagate to root logger.

	Info(ctx, "root log")
	Info(ctx2, "nested log")

	require.Equal(t, 2, observedLogs.Len())
	allLogs := observedLogs.All()
	assert.Equal(t, "root log", allLogs[0].Message)
	assert.ElementsMatch(t, []zap.Field{
		zap.String("foo", "bar"),
	}, allLogs[0].Context)

	assert.Equal(t, "nested log", allLogs[1].Message)
	assert.Equal(t, "nested", allLogs[1].LoggerName)
	assert.ElementsMatch(t, []zap.Field{
		zap.String("foo", "bar"),
		zap.String("baz", "bam"),
	}, allLogs[1].Context)
}

func TestLevels(t *testing.T) {
	core, obs := observer.New(zap.DebugLevel)
	ctx := With(t.Context(), NewZapLogger(zap.New(core)))

	Debugw(ctx, "debug", "k", 1)
	Infof(ctx, "info %d", 2)
	Warnw(ctx, "warn", "k", 3)
	Errorf(ctx, "error %s", "four")

	require.Equal(t, 4, obs.Len())
	entries := obs.All()
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Equal(t, "info 2", entries[1].Message)
	assert.Equal(t, zap.WarnLevel, entries[2].Level)
	assert.Equal(t, "error four", entries[3].Message)
	assert.Equal(t, zap.ErrorLevel, entries[3].Level)
}

func TestEnsureLogger(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, FromContext(ctx))

	ctx = EnsureLogger(ctx)
	require.NotNil(t, FromContext(ctx))

	l := NewDevLogger()
	ctx2 := EnsureLogger(With(ctx, l))
	assert.Same(t, l, FromContext(ctx2), "existing logger should be kept")
}

func TestNoLoggerDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		Info(context.Background(), "dropped")
		Track(context.Background(), "k", "v")
	})
}

func TestNew(t *testing.T) {
	assert.IsType(t, &ZapLogger{}, New("dev"))
	assert.IsType(t, &ZapLogger{}, New("prod"))
	assert.IsType(t, &ZapLogger{}, New(""))
}

package debug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestOutput(t *testing.T) {
	logs := observe(t)

	Output(false, "hidden %d", 1)
	Output(true, "shown %d", 2)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "shown 2", entries[0].Message)
	}
}

func TestTiming(t *testing.T) {
	logs := observe(t)

	Timing(false, "skipped")()
	Timing(true, "resolve")()

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "Starting: resolve", entries[0].Message)
		assert.Equal(t, "Completed: resolve", entries[1].Message)
		assert.Contains(t, entries[1].ContextMap(), "took")
	}
}

func TestOutputFollowsReplacedSugar(t *testing.T) {
	logs := observe(t)

	Output(true, "%s has %d streets", "SYDNEY", 3)

	entries := logs.FilterMessage("SYDNEY has 3 streets").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, zap.DebugLevel, entries[0].Level)
	}
}

package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStructuredHelpersCarryFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	Infow("turn appended", "sessionID", "s-1", "turns", 2)
	Error("gemini call failed", errors.New("boom"))
	Warnf("blank message from %s", "s-1")

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "turn appended", entries[0].Message)
	assert.Equal(t, "s-1", entries[0].ContextMap()["sessionID"])
	assert.EqualValues(t, 2, entries[0].ContextMap()["turns"])

	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])

	assert.Equal(t, "blank message from s-1", entries[2].Message)
}

func TestInitFallsBackToInfoOnUnknownLevel(t *testing.T) {
	Init("not-a-level", "json", "")
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	assert.False(t, sugar.Desugar().Core().Enabled(zap.DebugLevel))
	assert.True(t, sugar.Desugar().Core().Enabled(zap.InfoLevel))
}

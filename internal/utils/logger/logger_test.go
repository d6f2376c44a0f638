package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggerWritesConsoleAndJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sniper.log")
	var console bytes.Buffer

	l, err := newWithConsole(&Config{LogFile: path, MaxSize: 1}, &console)
	require.NoError(t, err)

	l.WithOperation("buy").Info("Trade confirmed", zap.Uint64("fee_lamports", 5_000))
	l.Debug("hidden at info level")
	require.NoError(t, l.Close())

	assert.Contains(t, console.String(), "Trade confirmed")
	assert.NotContains(t, console.String(), "hidden at info level")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "buy", entry["operation"])
	assert.NotEmpty(t, entry["correlation_id"])
	assert.Equal(t, float64(5_000), entry["fee_lamports"])
}

func TestLoggerDevelopmentLevel(t *testing.T) {
	var console bytes.Buffer
	l, err := newWithConsole(&Config{LogFile: filepath.Join(t.TempDir(), "dev.log"), Development: true}, &console)
	require.NoError(t, err)

	l.WithComponent("executor").Debug("Balance checked")
	require.NoError(t, l.Close())
	assert.Contains(t, console.String(), "Balance checked")
	assert.Contains(t, console.String(), "executor")
}

func TestLoggerRequiresFile(t *testing.T) {
	_, err := New(&Config{})
	assert.Error(t, err)
}

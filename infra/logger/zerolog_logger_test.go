package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	assert.NoError(t, os.Setenv("APP_ENV", "dev"))
	defer func() { assert.NoError(t, os.Unsetenv("APP_ENV")) }()
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestZerologLogger_JSONFields(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	require.NoError(t, Configure(Config{Level: "debug"}))
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "simulation")
	l.Debugw("tick", map[string]any{"vehicles": 2, "cluster": "A"})
	l.Warnf("clamped %s", "ev1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "simulation", rec["component"])
	assert.Equal(t, "debug", rec["level"])
	assert.Equal(t, "A", rec["cluster"])
	assert.Equal(t, float64(2), rec["vehicles"])
	assert.True(t, strings.Index(lines[0], `"cluster"`) < strings.Index(lines[0], `"vehicles"`))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "clamped ev1", rec["message"])
}

func TestConfigure_Errors(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	assert.Error(t, Configure(Config{Level: "loud"}))
	assert.Error(t, Configure(Config{Format: "xml"}))
	require.NoError(t, Configure(Config{Level: "warn"}))
	var buf bytes.Buffer
	NewWithWriter(&buf, "x").Infof("hidden")
	assert.Empty(t, buf.String())
	require.NoError(t, Configure(Config{}))
}

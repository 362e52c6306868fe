package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Infow("info", map[string]any{"bus": 7})
	l.Warnf("warn")
	l.Errorf("error")
}

func TestZerologLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "driver", "info").With(map[string]any{"bus": 1001})
	l.Infow("breakpoint applied", map[string]any{"setpoint_mw": 100.0})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "driver", entry["component"])
	assert.Equal(t, float64(1001), entry["bus"])
	assert.Equal(t, float64(100), entry["setpoint_mw"])
	assert.Equal(t, "breakpoint applied", entry["message"])
}

func TestZerologLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "analysis", "warn")
	l.Infof("hidden")
	l.Debugw("hidden", nil)
	l.Warnf("shown")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "shown"))
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l = l.With(map[string]any{"a": 1})
	l.Infow("x", nil)
	assert.IsType(t, NopLogger{}, l)
}

package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/kilianp07/lddl/config"
	coremon "github.com/kilianp07/lddl/core/monitoring"
)

func TestNewSentryMonitorDisabled(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.(coremon.NopMonitor); !ok {
		t.Fatalf("expected NopMonitor, got %T", m)
	}
}

func TestNewSentryMonitorInvalidDSN(t *testing.T) {
	if _, err := NewSentryMonitor(config.SentryConfig{DSN: "not a dsn"}); err == nil {
		t.Fatal("expected DSN parse error")
	}
}

func TestSentryMonitorCapture(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{DSN: "http://public@127.0.0.1:1/1", Environment: "test"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, ok := m.(*sentryMonitor); !ok {
		t.Fatalf("expected sentry monitor, got %T", m)
	}
	m.Breadcrumb("run", "bus 1001 simulate done", map[string]any{"breakpoints": 9})
	m.CaptureException(errors.New("engine down"), map[string]string{"bus": "1001"})
	m.CaptureException(nil, nil)
	m.Flush(10 * time.Millisecond)
}

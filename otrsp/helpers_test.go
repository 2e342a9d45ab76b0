package otrsp

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chadsbrown/otrsp/logger"
	"github.com/chadsbrown/otrsp/transport"
)

func TestMain(m *testing.M) {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	var level logger.Level

	switch logLevel {
	case "debug":
		level = logger.DebugLevel
	case "info":
		level = logger.InfoLevel
	case "warn":
		level = logger.WarnLevel
	case "error":
		level = logger.ErrorLevel
	default:
		level = logger.InfoLevel
	}

	logger.SetLevel(level)

	os.Exit(m.Run())
}

// newTestConfig creates a Config with short timeouts suitable for tests.
func newTestConfig(t *testing.T, opts ...ConnOption) *Config {
	t.Helper()

	defaults := []ConnOption{
		WithQueryName(false),
		WithCommandTimeout(200 * time.Millisecond),
		WithNameQueryTimeout(50 * time.Millisecond),
		WithDrainWindow(100 * time.Millisecond),
		WithDrainReadTimeout(20 * time.Millisecond),
	}

	cfg, err := NewConfig("", append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestConfig: %v", err)
	}

	return cfg
}

// newTestDevice builds a Device over a FakePort, with the name query
// disabled unless opts enable it.
func newTestDevice(t *testing.T, opts ...ConnOption) (*Device, *transport.FakePort) {
	t.Helper()

	cfg := newTestConfig(t, opts...)
	port := transport.NewFakePort()

	dev, err := BuildWithPort(context.Background(), cfg, port)
	require.NoError(t, err)

	t.Cleanup(func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = dev.Close(closeCtx)
	})

	return dev, port
}

// countDisconnects consumes sub until its channel closes and returns how many
// Disconnected events were observed, plus the reason of the last one.
func countDisconnects(t *testing.T, sub *Subscription) (int, DisconnectReason) {
	t.Helper()

	count := 0
	reason := DisconnectGraceful

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return count, reason
			}
			if ev.Type == EventDisconnected {
				count++
				reason = ev.Reason
			}

		case <-timeout:
			t.Fatal("countDisconnects: event channel never closed")
			return count, reason
		}
	}
}

// waitEvent waits for the next event of the given type on sub.
func waitEvent(t *testing.T, sub *Subscription, et EventType) SwitchEvent {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				t.Fatalf("waitEvent: channel closed before %v event", et)
			}
			if ev.Type == et {
				return ev
			}

		case <-timeout:
			t.Fatalf("waitEvent: no %v event within deadline", et)
		}
	}
}

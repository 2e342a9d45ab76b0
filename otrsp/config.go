package otrsp

import (
	"errors"
	"fmt"
	"time"

	"github.com/chadsbrown/otrsp/logger"
)

// Default configuration values.
const (
	// DefaultNameQueryTimeout bounds the startup ?NAME exchange.
	DefaultNameQueryTimeout = 1 * time.Second

	// DefaultDrainWindow bounds the whole drain pass after a failed ?NAME
	// exchange.
	DefaultDrainWindow = 200 * time.Millisecond

	// DefaultDrainReadTimeout is the per-attempt sub-deadline inside the
	// drain pass. A sub-read that times out means the stream is quiet and
	// the drain exits early.
	DefaultDrainReadTimeout = 20 * time.Millisecond

	// DefaultCommandTimeout is the per-request reply deadline and the
	// request-queue admission timeout.
	DefaultCommandTimeout = 5 * time.Second

	DefaultQueueSize       = 32
	DefaultEventBufferSize = 64
)

// Lower bounds for configurable timeouts.
const (
	MinNameQueryTimeout = 10 * time.Millisecond
	MinDrainWindow      = 10 * time.Millisecond
	MinDrainReadTimeout = 1 * time.Millisecond
	MinCommandTimeout   = 10 * time.Millisecond
)

// Config holds all configuration for an OTRSP connection.
type Config struct {
	// portPath is the serial device path, e.g. "/dev/ttyUSB0".
	// It may be empty when the port is supplied directly via BuildWithPort.
	portPath string

	// queryName controls whether Build performs the startup ?NAME query.
	queryName bool

	nameQueryTimeout time.Duration
	drainWindow      time.Duration
	drainReadTimeout time.Duration
	commandTimeout   time.Duration

	queueSize       int
	eventBufferSize int

	logger logger.Logger
}

// NewConfig creates a new connection configuration for the given serial
// device path.
//
// opts are functional options applied in order; see With* functions.
func NewConfig(portPath string, opts ...ConnOption) (*Config, error) {
	cfg := &Config{
		portPath:         portPath,
		queryName:        true,
		nameQueryTimeout: DefaultNameQueryTimeout,
		drainWindow:      DefaultDrainWindow,
		drainReadTimeout: DefaultDrainReadTimeout,
		commandTimeout:   DefaultCommandTimeout,
		queueSize:        DefaultQueueSize,
		eventBufferSize:  DefaultEventBufferSize,
		logger:           logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// --- Getters ---

// PortPath returns the configured serial device path.
func (cfg *Config) PortPath() string { return cfg.portPath }

// QueryName returns whether the startup ?NAME query is enabled.
func (cfg *Config) QueryName() bool { return cfg.queryName }

// NameQueryTimeout returns the startup ?NAME reply deadline.
func (cfg *Config) NameQueryTimeout() time.Duration { return cfg.nameQueryTimeout }

// DrainWindow returns the overall drain pass window.
func (cfg *Config) DrainWindow() time.Duration { return cfg.drainWindow }

// DrainReadTimeout returns the per-attempt drain read deadline.
func (cfg *Config) DrainReadTimeout() time.Duration { return cfg.drainReadTimeout }

// CommandTimeout returns the per-request reply deadline.
func (cfg *Config) CommandTimeout() time.Duration { return cfg.commandTimeout }

// QueueSize returns the request queue capacity.
func (cfg *Config) QueueSize() int { return cfg.queueSize }

// EventBufferSize returns the per-subscriber event buffer capacity.
func (cfg *Config) EventBufferSize() int { return cfg.eventBufferSize }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// --- ConnOption ---

// ConnOption is a functional option for configuring a Config.
type ConnOption interface {
	apply(*Config) error
}

type connOptFunc func(*Config) error

func (f connOptFunc) apply(cfg *Config) error { return f(cfg) }

// WithQueryName enables or disables the startup ?NAME identification query.
// Enabled by default; when disabled, the device name is recorded as "Unknown".
func WithQueryName(enabled bool) ConnOption {
	return connOptFunc(func(cfg *Config) error {
		cfg.queryName = enabled
		return nil
	})
}

// WithNameQueryTimeout sets the deadline for the startup ?NAME reply.
func WithNameQueryTimeout(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *Config) error {
		if d < MinNameQueryTimeout {
			return fmt.Errorf("otrsp: name query timeout %v below minimum %v", d, MinNameQueryTimeout)
		}
		cfg.nameQueryTimeout = d

		return nil
	})
}

// WithDrainWindow sets the overall window of the drain pass that discards
// stale bytes after a failed ?NAME exchange.
func WithDrainWindow(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *Config) error {
		if d < MinDrainWindow {
			return fmt.Errorf("otrsp: drain window %v below minimum %v", d, MinDrainWindow)
		}
		cfg.drainWindow = d

		return nil
	})
}

// WithDrainReadTimeout sets the per-attempt read deadline inside the drain pass.
func WithDrainReadTimeout(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *Config) error {
		if d < MinDrainReadTimeout {
			return fmt.Errorf("otrsp: drain read timeout %v below minimum %v", d, MinDrainReadTimeout)
		}
		cfg.drainReadTimeout = d

		return nil
	})
}

// WithCommandTimeout sets the per-request reply deadline.
func WithCommandTimeout(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *Config) error {
		if d < MinCommandTimeout {
			return fmt.Errorf("otrsp: command timeout %v below minimum %v", d, MinCommandTimeout)
		}
		cfg.commandTimeout = d

		return nil
	})
}

// WithQueueSize sets the request queue capacity.
func WithQueueSize(size int) ConnOption {
	return connOptFunc(func(cfg *Config) error {
		if size < 1 {
			return errors.New("otrsp: queue size must be >= 1")
		}
		cfg.queueSize = size

		return nil
	})
}

// WithEventBufferSize sets the per-subscriber event buffer capacity.
func WithEventBufferSize(size int) ConnOption {
	return connOptFunc(func(cfg *Config) error {
		if size < 1 {
			return errors.New("otrsp: event buffer size must be >= 1")
		}
		cfg.eventBufferSize = size

		return nil
	})
}

// WithLogger sets the logger for the connection.
func WithLogger(l logger.Logger) ConnOption {
	return connOptFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("otrsp: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}

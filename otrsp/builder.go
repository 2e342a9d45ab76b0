package otrsp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chadsbrown/otrsp/internal/task"
	"github.com/chadsbrown/otrsp/transport"
)

// UnknownDeviceName is recorded when the startup identification query is
// disabled or fails.
const UnknownDeviceName = "Unknown"

// Build opens the configured serial port, performs the startup handshake and
// returns a connected Device.
//
// A port-open failure is fatal and is returned without spawning anything. An
// identification failure is never fatal; it only downgrades the recorded
// device name to "Unknown".
func Build(ctx context.Context, cfg *Config) (*Device, error) {
	if cfg == nil {
		return nil, errors.New("otrsp: config is nil")
	}
	if cfg.portPath == "" {
		return nil, errors.New("otrsp: port path is empty")
	}

	port, err := transport.Open(cfg.portPath)
	if err != nil {
		return nil, fmt.Errorf("otrsp: %w", err)
	}

	return BuildWithPort(ctx, cfg, port)
}

// BuildWithPort performs the startup handshake on a pre-opened port and
// returns a connected Device. Tests use it with a transport.FakePort.
//
// The builder owns the port only until the IO goroutine is spawned; from
// that instant nothing else touches it.
func BuildWithPort(ctx context.Context, cfg *Config, port transport.Port) (*Device, error) {
	if cfg == nil {
		return nil, errors.New("otrsp: config is nil")
	}
	if port == nil {
		return nil, errors.New("otrsp: port is nil")
	}

	log := cfg.logger
	metrics := &DeviceMetrics{}

	name := UnknownDeviceName
	if cfg.queryName {
		name = queryDeviceName(port, cfg, metrics)
	}

	bus := NewEventBus(cfg.eventBufferSize, log)
	bus.Publish(SwitchEvent{Type: EventConnected})

	mgr := task.NewManager(ctx, log)
	io := newIOTask(port, cfg, bus, mgr, metrics)

	if err := io.start(); err != nil {
		_ = port.Close()
		bus.Close()

		return nil, fmt.Errorf("otrsp: failed to start IO task: %w", err)
	}

	log.Info("otrsp: device connected", "name", name, "port", cfg.portPath)

	return &Device{
		cfg: cfg,
		io:  io,
		bus: bus,
		info: SwitchInfo{
			Name:     name,
			PortPath: cfg.portPath,
		},
		caps: SwitchCapabilities{
			Stereo:        true,
			ReverseStereo: true,
			AuxPorts:      2,
		},
		metrics: metrics,
		logger:  log,
	}, nil
}

// queryDeviceName performs the best-effort startup ?NAME exchange.
//
// On timeout or read error it does not return immediately: a bounded drain
// pass first discards any bytes still attributable to the exchange, so the
// IO goroutine never starts with residue on the stream.
func queryDeviceName(port transport.Port, cfg *Config, metrics *DeviceMetrics) string {
	log := cfg.logger

	if err := port.Write(EncodeQueryName()); err != nil {
		log.Warn("otrsp: failed to send ?NAME", "error", err)
		drainPort(port, cfg, metrics)

		return UnknownDeviceName
	}

	line, err := port.ReadLine(cfg.nameQueryTimeout)
	if err != nil {
		if errors.Is(err, transport.ErrReadTimeout) {
			log.Warn("otrsp: timeout querying device name", "timeout", cfg.nameQueryTimeout)
		} else {
			log.Warn("otrsp: failed to read device name", "error", err)
		}
		drainPort(port, cfg, metrics)

		return UnknownDeviceName
	}

	name := ParseNameResponse(line)
	log.Info("otrsp: device identified", "name", name)

	return name
}

// drainPort discards residual response bytes with short per-attempt reads
// inside an overall window.
//
// A sub-read timeout means the stream is quiet; an EOF or error means it is
// dead. Either ends the drain early, so quiet streams exit fast while a
// single slow duplicate line is still reliably consumed.
func drainPort(port transport.Port, cfg *Config, metrics *DeviceMetrics) {
	expiry := time.Now().Add(cfg.drainWindow)

	for time.Now().Before(expiry) {
		attempt := cfg.drainReadTimeout
		if remaining := time.Until(expiry); remaining < attempt {
			attempt = remaining
		}

		line, err := port.ReadLine(attempt)
		if err != nil {
			return
		}

		metrics.incDrainedLineCount()
		cfg.logger.Debug("otrsp: drained stale line", "line", line)
	}
}

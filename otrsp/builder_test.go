package otrsp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chadsbrown/otrsp/transport"
)

func TestBuildWithPortQueriesName(t *testing.T) {
	cfg := newTestConfig(t, WithQueryName(true))
	port := transport.NewFakePort()
	port.QueueLine("NAMESO2RDUINO")

	dev, err := BuildWithPort(context.Background(), cfg, port)
	require.NoError(t, err)
	defer dev.Close(context.Background())

	assert.Equal(t, "SO2RDUINO", dev.Info().Name)
	assert.Equal(t, []string{"?NAME"}, port.WrittenCommands())
}

func TestBuildWithPortNameQueryDisabled(t *testing.T) {
	dev, port := newTestDevice(t)

	assert.Equal(t, UnknownDeviceName, dev.Info().Name)
	assert.Empty(t, port.WrittenCommands())
}

func TestBuildWithPortNameTimeout(t *testing.T) {
	cfg := newTestConfig(t, WithQueryName(true))
	port := transport.NewFakePort() // device never answers

	dev, err := BuildWithPort(context.Background(), cfg, port)
	require.NoError(t, err)
	defer dev.Close(context.Background())

	assert.Equal(t, UnknownDeviceName, dev.Info().Name)
	assert.Equal(t, ConnectedState, dev.State())
}

func TestBuildWithPortNameReadError(t *testing.T) {
	cfg := newTestConfig(t, WithQueryName(true))
	port := transport.NewFakePort()
	port.CloseRead()

	// Identification failure is never fatal; the device must still be usable
	// for fire-and-forget commands.
	dev, err := BuildWithPort(context.Background(), cfg, port)
	require.NoError(t, err)
	defer dev.Close(context.Background())

	assert.Equal(t, UnknownDeviceName, dev.Info().Name)
	require.NoError(t, dev.SetTx(context.Background(), Radio1))
}

// TestBuildWithPortStaleNameResponseDrained reproduces the stale-buffer
// scenario: the ?NAME reply arrives after the startup deadline, and the
// first steady-state query must only ever observe its own response.
func TestBuildWithPortStaleNameResponseDrained(t *testing.T) {
	cfg := newTestConfig(t,
		WithQueryName(true),
		WithNameQueryTimeout(50*time.Millisecond),
		WithDrainWindow(300*time.Millisecond),
		WithDrainReadTimeout(100*time.Millisecond),
	)

	port := transport.NewFakePort()
	// The reply lands past the 50ms startup deadline, inside the drain window.
	port.QueueLineAfter("NAMESO2RDUINO", 80*time.Millisecond)

	dev, err := BuildWithPort(context.Background(), cfg, port)
	require.NoError(t, err)
	defer dev.Close(context.Background())

	assert.Equal(t, UnknownDeviceName, dev.Info().Name)
	assert.Equal(t, uint64(1), dev.Metrics().DrainedLineCount.Load())

	// The late NAME line must not bleed into the first AUX query.
	port.QueueLine("AUX15")

	value, err := dev.QueryAux(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), value)
}

func TestBuildValidation(t *testing.T) {
	_, err := Build(context.Background(), nil)
	require.Error(t, err)

	cfg := newTestConfig(t)
	_, err = Build(context.Background(), cfg) // empty port path
	require.Error(t, err)

	_, err = BuildWithPort(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestBuildOpenFailure(t *testing.T) {
	cfg, err := NewConfig("/dev/nonexistent-otrsp-port")
	require.NoError(t, err)

	_, err = Build(context.Background(), cfg)
	require.Error(t, err)
}

func TestBuildWithPortCapabilities(t *testing.T) {
	dev, _ := newTestDevice(t)

	caps := dev.Capabilities()
	assert.True(t, caps.Stereo)
	assert.True(t, caps.ReverseStereo)
	assert.Equal(t, uint8(2), caps.AuxPorts)
}

package transport

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakePortReadLine(t *testing.T) {
	port := NewFakePort()

	port.QueueLine("NAMESO2RDUINO")

	line, err := port.ReadLine(100 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "NAMESO2RDUINO", line)
}

func TestFakePortReadLineCRLF(t *testing.T) {
	port := NewFakePort()

	// Devices terminating with CRLF must not yield empty lines.
	port.QueueBytes([]byte("AUX15\r\nAUX27\r\n"))

	line, err := port.ReadLine(100 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "AUX15", line)

	line, err = port.ReadLine(100 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "AUX27", line)
}

func TestFakePortReadLinePartial(t *testing.T) {
	port := NewFakePort()

	// An unterminated fragment stays buffered until its terminator arrives.
	port.QueueBytes([]byte("AUX1"))

	_, err := port.ReadLine(50 * time.Millisecond)
	require.ErrorIs(t, err, ErrReadTimeout)

	port.QueueBytes([]byte("5\r"))

	line, err := port.ReadLine(100 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "AUX15", line)
}

func TestFakePortReadLineTimeout(t *testing.T) {
	port := NewFakePort()

	start := time.Now()
	_, err := port.ReadLine(50 * time.Millisecond)
	require.ErrorIs(t, err, ErrReadTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestFakePortQueueLineAfter(t *testing.T) {
	port := NewFakePort()

	port.QueueLineAfter("NAMELater", 30*time.Millisecond)

	// A pending reader wakes when the delayed line lands.
	line, err := port.ReadLine(500 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "NAMELater", line)
}

func TestFakePortFailReads(t *testing.T) {
	port := NewFakePort()

	injected := errors.New("yanked cable")
	port.FailReads(injected)

	_, err := port.ReadLine(time.Second)
	require.ErrorIs(t, err, injected)
}

func TestFakePortFailWrites(t *testing.T) {
	port := NewFakePort()

	require.NoError(t, port.Write([]byte("TX1\r")))

	injected := errors.New("yanked cable")
	port.FailWrites(injected)

	require.ErrorIs(t, port.Write([]byte("TX2\r")), injected)
	assert.Equal(t, []string{"TX1"}, port.WrittenCommands())
}

func TestFakePortCloseRead(t *testing.T) {
	port := NewFakePort()

	port.QueueLine("AUX19")
	port.CloseRead()

	// Scripted lines drain first, then EOF.
	line, err := port.ReadLine(100 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "AUX19", line)

	_, err = port.ReadLine(100 * time.Millisecond)
	require.ErrorIs(t, err, io.EOF)

	// Writes still succeed on a half-dead port.
	require.NoError(t, port.Write([]byte("TX1\r")))
}

func TestFakePortClose(t *testing.T) {
	port := NewFakePort()

	require.NoError(t, port.Close())
	require.NoError(t, port.Close())

	assert.True(t, port.Closed())

	_, err := port.ReadLine(100 * time.Millisecond)
	require.ErrorIs(t, err, ErrPortClosed)
	require.ErrorIs(t, port.Write([]byte("TX1\r")), ErrPortClosed)
}

func TestFakePortCloseWakesReader(t *testing.T) {
	port := NewFakePort()

	errCh := make(chan error, 1)
	go func() {
		_, err := port.ReadLine(5 * time.Second)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, port.Close())

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrPortClosed)
	case <-time.After(time.Second):
		t.Fatal("reader not woken by close")
	}
}

func TestFakePortWrittenCommands(t *testing.T) {
	port := NewFakePort()

	require.NoError(t, port.Write([]byte("TX1\r")))
	require.NoError(t, port.Write([]byte("RX2S\r")))
	require.NoError(t, port.Write([]byte("?AUX1\r")))

	assert.Equal(t, []string{"TX1", "RX2S", "?AUX1"}, port.WrittenCommands())
	assert.Equal(t, []byte("TX1\rRX2S\r?AUX1\r"), port.Written())
}

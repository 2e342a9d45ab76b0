package transport

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// OTRSP serial parameters: 9600 baud, 8N1, no flow control, RTS and DTR low.
const serialBaudRate = 9600

// SerialPort is a Port backed by a real serial device.
type SerialPort struct {
	mu      sync.Mutex
	port    serial.Port
	pending []byte
	closed  atomic.Bool
	path    string
}

var _ Port = (*SerialPort)(nil)

// Open opens the serial device at path with OTRSP parameters.
func Open(path string) (*SerialPort, error) {
	mode := &serial.Mode{
		BaudRate: serialBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to open %s: %w", path, err)
	}

	// RTS and DTR are driven low so devices that power auxiliary circuits
	// from modem-control lines stay quiescent. Not all platforms support
	// these calls; failures are not fatal.
	_ = port.SetRTS(false)
	_ = port.SetDTR(false)

	return &SerialPort{port: port, path: path}, nil
}

// Path returns the serial device path this port was opened with.
func (sp *SerialPort) Path() string { return sp.path }

// Write writes all of p to the serial device.
func (sp *SerialPort) Write(p []byte) error {
	if sp.closed.Load() {
		return ErrPortClosed
	}

	for len(p) > 0 {
		n, err := sp.port.Write(p)
		if err != nil {
			return fmt.Errorf("transport: write to %s failed: %w", sp.path, err)
		}
		p = p[n:]
	}

	return nil
}

// ReadLine reads a single line from the serial device, honoring the deadline.
//
// Bytes received after a partial line are retained across calls, so a line
// split across reads is still delivered whole.
func (sp *SerialPort) ReadLine(deadline time.Duration) (string, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	expiry := time.Now().Add(deadline)
	buf := make([]byte, 64)

	for {
		if line, ok := sp.takeLine(); ok {
			return line, nil
		}

		if sp.closed.Load() {
			return "", ErrPortClosed
		}

		remaining := time.Until(expiry)
		if remaining <= 0 {
			return "", ErrReadTimeout
		}

		if err := sp.port.SetReadTimeout(remaining); err != nil {
			return "", fmt.Errorf("transport: set read timeout on %s failed: %w", sp.path, err)
		}

		n, err := sp.port.Read(buf)
		if err != nil {
			if sp.closed.Load() {
				return "", ErrPortClosed
			}

			return "", fmt.Errorf("transport: read from %s failed: %w", sp.path, err)
		}

		// go.bug.st/serial reports a read timeout as n == 0 with a nil error.
		// Loop around; the deadline check above converts it to ErrReadTimeout.
		if n == 0 {
			continue
		}

		sp.pending = append(sp.pending, buf[:n]...)
	}
}

// takeLine extracts the first complete line from the pending buffer.
// Leading terminators are skipped.
func (sp *SerialPort) takeLine() (string, bool) {
	start := 0
	for start < len(sp.pending) && isLineTerminator(sp.pending[start]) {
		start++
	}

	for i := start; i < len(sp.pending); i++ {
		if isLineTerminator(sp.pending[i]) {
			line := string(sp.pending[start:i])
			sp.pending = sp.pending[i+1:]

			return line, true
		}
	}

	if start > 0 {
		sp.pending = sp.pending[start:]
	}

	return "", false
}

// Close closes the serial device. Subsequent reads and writes fail with
// ErrPortClosed. Calling Close more than once is a no-op.
func (sp *SerialPort) Close() error {
	if !sp.closed.CompareAndSwap(false, true) {
		return nil
	}

	return sp.port.Close()
}

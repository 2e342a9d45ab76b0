package transport

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chadsbrown/otrsp/internal/pool"
)

// FakePort is an in-memory Port for deterministic tests.
//
// Response lines are scripted with QueueLine (or QueueLineAfter for an
// artificial delay), transport failures are injected with FailReads,
// FailWrites, CloseRead and Close, and everything the host wrote is
// available via Written and WrittenCommands.
//
// A ReadLine with nothing scripted simply waits out its deadline, which is
// how tests force a read to hang.
//
// FakePort is safe for concurrent use.
type FakePort struct {
	mu         sync.Mutex
	readBuf    []byte
	writeLog   []byte
	closed     bool
	readClosed bool
	readErr    error
	writeErr   error
	notify     chan struct{}
}

var _ Port = (*FakePort)(nil)

// NewFakePort creates a FakePort with nothing scripted.
func NewFakePort() *FakePort {
	return &FakePort{notify: make(chan struct{})}
}

// QueueLine scripts a CR-terminated response line, waking any pending reader.
func (f *FakePort) QueueLine(line string) {
	f.QueueBytes([]byte(line + "\r"))
}

// QueueLineAfter scripts a response line that becomes readable after the
// given artificial delay.
func (f *FakePort) QueueLineAfter(line string, delay time.Duration) {
	time.AfterFunc(delay, func() { f.QueueLine(line) })
}

// QueueBytes scripts raw response bytes, waking any pending reader.
func (f *FakePort) QueueBytes(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.readBuf = append(f.readBuf, data...)
	f.wakeLocked()
}

// FailReads forces subsequent reads to fail with err.
func (f *FakePort) FailReads(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.readErr = err
	f.wakeLocked()
}

// FailWrites forces subsequent writes to fail with err.
func (f *FakePort) FailWrites(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writeErr = err
}

// CloseRead closes only the read side: reads observe io.EOF while writes
// still succeed, simulating a half-dead connection.
func (f *FakePort) CloseRead() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.readClosed = true
	f.wakeLocked()
}

// Written returns a copy of all bytes the host wrote to the port.
func (f *FakePort) Written() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]byte, len(f.writeLog))
	copy(out, f.writeLog)

	return out
}

// WrittenCommands returns the CR-terminated commands the host wrote,
// in order, without terminators.
func (f *FakePort) WrittenCommands() []string {
	logged := string(f.Written())

	var cmds []string
	for _, cmd := range strings.FieldsFunc(logged, func(r rune) bool { return r == '\r' || r == '\n' }) {
		cmds = append(cmds, cmd)
	}

	return cmds
}

// Closed reports whether the port has been closed.
func (f *FakePort) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

// Write appends p to the write log, or fails if a write error is scripted
// or the port is closed.
func (f *FakePort) Write(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrPortClosed
	}
	if f.writeErr != nil {
		return f.writeErr
	}

	f.writeLog = append(f.writeLog, p...)

	return nil
}

// ReadLine returns the next scripted line, waiting up to deadline for one
// to become available.
func (f *FakePort) ReadLine(deadline time.Duration) (string, error) {
	timer := pool.GetTimer(deadline)
	defer pool.PutTimer(timer)

	for {
		f.mu.Lock()

		if f.closed {
			f.mu.Unlock()
			return "", ErrPortClosed
		}
		if f.readErr != nil {
			err := f.readErr
			f.mu.Unlock()

			return "", err
		}

		if line, ok := f.takeLineLocked(); ok {
			f.mu.Unlock()
			return line, nil
		}

		if f.readClosed {
			f.mu.Unlock()
			return "", io.EOF
		}

		wake := f.notify
		f.mu.Unlock()

		select {
		case <-timer.C:
			return "", ErrReadTimeout
		case <-wake:
		}
	}
}

// Close closes the port and wakes any pending reader. Idempotent.
func (f *FakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}

	f.closed = true
	f.wakeLocked()

	return nil
}

func (f *FakePort) takeLineLocked() (string, bool) {
	start := 0
	for start < len(f.readBuf) && isLineTerminator(f.readBuf[start]) {
		start++
	}

	for i := start; i < len(f.readBuf); i++ {
		if isLineTerminator(f.readBuf[i]) {
			line := string(f.readBuf[start:i])
			f.readBuf = f.readBuf[i+1:]

			return line, true
		}
	}

	if start > 0 {
		f.readBuf = f.readBuf[start:]
	}

	return "", false
}

// wakeLocked broadcasts a state change to pending readers. Callers must
// hold f.mu.
func (f *FakePort) wakeLocked() {
	close(f.notify)
	f.notify = make(chan struct{})
}

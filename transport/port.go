// Package transport provides the byte-stream port abstraction used by the otrsp
// package: a real serial implementation backed by go.bug.st/serial and a fully
// scriptable in-memory fake for deterministic tests.
package transport

import (
	"errors"
	"time"
)

// Sentinel errors for port operations.
var (
	// ErrReadTimeout indicates that a ReadLine deadline expired before a
	// complete line arrived. It is recoverable at the caller's discretion
	// and is never treated as a transport failure.
	ErrReadTimeout = errors.New("transport: read deadline expired")

	// ErrPortClosed indicates that the port has been closed.
	ErrPortClosed = errors.New("transport: port closed")
)

// Port is a line-oriented byte-stream transport.
//
// A Port is exclusively owned by exactly one party at a time; no two parties
// ever read concurrently.
type Port interface {
	// Write writes all of p to the port.
	Write(p []byte) error

	// ReadLine reads bytes until a CR or LF terminator and returns the line
	// without the terminator. Leading terminators are skipped so a trailing
	// LF from a CRLF-terminated response never yields an empty line.
	//
	// If no complete line arrives within the deadline, ReadLine returns
	// ErrReadTimeout. Any other error (io.EOF, ErrPortClosed, wrapped OS
	// errors) indicates a transport failure.
	ReadLine(deadline time.Duration) (string, error)

	// Close closes the port. It is idempotent.
	Close() error
}

// isLineTerminator reports whether b ends a line.
func isLineTerminator(b byte) bool {
	return b == '\r' || b == '\n'
}

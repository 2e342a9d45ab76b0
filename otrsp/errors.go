package otrsp

import (
	"errors"
	"fmt"
)

// Sentinel errors for the OTRSP client.
var (
	// ErrTimeout indicates that a single query did not receive a response
	// within its deadline. The connection stays up; subsequent requests
	// proceed normally.
	ErrTimeout = errors.New("otrsp: reply timeout")

	// ErrProtocol indicates that a response was received but its content
	// violates the expected contract.
	ErrProtocol = errors.New("otrsp: protocol error")

	// ErrConnClosed indicates that the connection is closed or closing.
	ErrConnClosed = errors.New("otrsp: connection closed")

	// ErrSendTimeout indicates that a request could not be queued to the
	// IO goroutine in time.
	ErrSendTimeout = errors.New("otrsp: send queue timeout")

	// ErrInvalidParam indicates that a command parameter failed local
	// validation before anything was written to the wire.
	ErrInvalidParam = errors.New("otrsp: invalid parameter")
)

// AuxMismatchError is returned when a ?AUX reply parses syntactically but
// reports a different port than the one queried. Accepting such a reply would
// silently attach a response to the wrong request after a stream desync, so
// it is a protocol error even though the line itself is well formed.
type AuxMismatchError struct {
	// Requested is the AUX port the query asked for.
	Requested uint8
	// Returned is the AUX port the device answered with.
	Returned uint8
}

func (e *AuxMismatchError) Error() string {
	return fmt.Sprintf("otrsp: AUX port mismatch: requested port %d, got port %d", e.Requested, e.Returned)
}

// Unwrap makes errors.Is(err, ErrProtocol) true for AUX mismatches.
func (e *AuxMismatchError) Unwrap() error { return ErrProtocol }

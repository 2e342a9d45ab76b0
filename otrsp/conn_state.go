package otrsp

import "sync/atomic"

// ConnState represents the lifecycle stage of an OTRSP connection.
type ConnState uint32

const (
	// ConnectedState indicates the IO goroutine owns the port and is serving requests.
	ConnectedState ConnState = iota
	// DisconnectingState indicates a terminal condition was observed and teardown is running.
	DisconnectingState
	// DisconnectedState indicates teardown finished: the Disconnected event was
	// emitted and the port released. No further transitions occur.
	DisconnectedState
)

// String returns string representation of the current state.
func (cs ConnState) String() string {
	switch cs {
	case ConnectedState:
		return "connected"
	case DisconnectingState:
		return "disconnecting"
	case DisconnectedState:
		return "disconnected"
	default:
		return "unknown"
	}
}

// atomicConnState holds a ConnState with compare-and-swap transitions.
//
// The only allowed flow is Connected -> Disconnecting -> Disconnected, and
// ToDisconnecting is the first-writer-wins gate every teardown trigger must
// pass through, which is what yields the emit-exactly-once disconnect
// guarantee.
type atomicConnState struct {
	state atomic.Uint32
}

// Get returns the current state.
func (st *atomicConnState) Get() ConnState {
	return ConnState(st.state.Load())
}

func (st *atomicConnState) IsConnected() bool {
	return st.Get() == ConnectedState
}

func (st *atomicConnState) IsDisconnected() bool {
	return st.Get() == DisconnectedState
}

// ToDisconnecting attempts the Connected -> Disconnecting transition.
// It returns true for exactly one caller; all later callers get false.
func (st *atomicConnState) ToDisconnecting() bool {
	return st.state.CompareAndSwap(uint32(ConnectedState), uint32(DisconnectingState))
}

// ToDisconnected completes the Disconnecting -> Disconnected transition.
func (st *atomicConnState) ToDisconnected() bool {
	return st.state.CompareAndSwap(uint32(DisconnectingState), uint32(DisconnectedState))
}

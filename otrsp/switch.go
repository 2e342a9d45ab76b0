package otrsp

import "context"

// SwitchInfo describes a connected SO2R switch device.
type SwitchInfo struct {
	// Name is the device name from the startup ?NAME query, or "Unknown".
	Name string
	// PortPath is the serial device path, if connected via serial.
	PortPath string
}

// SwitchCapabilities describes what an SO2R switch device supports.
type SwitchCapabilities struct {
	// Stereo indicates support for the stereo RX mode.
	Stereo bool
	// ReverseStereo indicates support for the reverse-stereo RX mode.
	ReverseStereo bool
	// AuxPorts is the number of AUX ports (typically 2).
	AuxPorts uint8
}

// So2rSwitch is the backend-agnostic contract for SO2R switch control.
//
// It is implemented by Device for serial OTRSP hardware; other backends can
// implement it as well.
type So2rSwitch interface {
	// Info returns device metadata fixed at build time.
	Info() SwitchInfo

	// Capabilities returns what the device supports.
	Capabilities() SwitchCapabilities

	// SetTx selects which radio receives transmit focus (key, mic, PTT).
	SetTx(ctx context.Context, radio Radio) error

	// SetRx sets receive audio routing.
	SetRx(ctx context.Context, radio Radio, mode RxMode) error

	// SetAux sets an auxiliary BCD output value (band decoder).
	SetAux(ctx context.Context, port, value uint8) error

	// DeviceName queries the device name over the wire.
	DeviceName(ctx context.Context) (string, error)

	// QueryAux queries the current value of an auxiliary port.
	QueryAux(ctx context.Context, port uint8) (uint8, error)

	// SendRaw sends a raw OTRSP command; the CR terminator is appended
	// automatically.
	SendRaw(ctx context.Context, command string) error

	// Subscribe returns a subscription observing all events emitted from
	// this point forward.
	Subscribe() *Subscription

	// Close tears the connection down and waits for teardown to complete.
	Close(ctx context.Context) error
}

package otrsp

// Radio identifies which radio a command targets.
type Radio uint8

const (
	// Radio1 is the first radio.
	Radio1 Radio = 1
	// Radio2 is the second radio.
	Radio2 Radio = 2
)

// Valid returns whether r is a usable radio value.
func (r Radio) Valid() bool { return r == Radio1 || r == Radio2 }

// String returns string representation of the radio.
func (r Radio) String() string {
	switch r {
	case Radio1:
		return "radio1"
	case Radio2:
		return "radio2"
	default:
		return "unknown"
	}
}

// digit returns the ASCII digit used in the wire encoding.
func (r Radio) digit() byte { return byte('0' + r) }

// RxMode is the receive audio routing mode.
type RxMode uint8

const (
	// RxMono routes the selected radio's audio to both ears.
	RxMono RxMode = iota
	// RxStereo routes radio 1 to the left ear and radio 2 to the right ear.
	RxStereo
	// RxReverseStereo routes radio 1 to the right ear and radio 2 to the left ear.
	RxReverseStereo
)

// Valid returns whether m is a usable RX mode value.
func (m RxMode) Valid() bool {
	return m == RxMono || m == RxStereo || m == RxReverseStereo
}

// String returns string representation of the RX mode.
func (m RxMode) String() string {
	switch m {
	case RxMono:
		return "mono"
	case RxStereo:
		return "stereo"
	case RxReverseStereo:
		return "reverse-stereo"
	default:
		return "unknown"
	}
}

// DisconnectReason tags a Disconnected event with what triggered the teardown.
type DisconnectReason uint8

const (
	// DisconnectGraceful indicates the connection was closed on request.
	DisconnectGraceful DisconnectReason = iota
	// DisconnectError indicates an unrecoverable transport failure.
	DisconnectError
)

// String returns string representation of the disconnect reason.
func (r DisconnectReason) String() string {
	switch r {
	case DisconnectGraceful:
		return "graceful"
	case DisconnectError:
		return "error"
	default:
		return "unknown"
	}
}

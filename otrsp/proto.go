package otrsp

import (
	"fmt"
	"strconv"
	"strings"
)

// OTRSP commands are ASCII, CR-terminated. All encoders and parsers in this
// file are pure functions.

const lineTerminator = "\r"

// EncodeTx encodes a TX selection command (TX1 or TX2).
func EncodeTx(radio Radio) ([]byte, error) {
	if !radio.Valid() {
		return nil, fmt.Errorf("%w: radio must be 1 or 2, got %d", ErrInvalidParam, radio)
	}

	return []byte{'T', 'X', radio.digit(), '\r'}, nil
}

// EncodeRx encodes an RX audio routing command.
//
// Produces RX1, RX2, RX1S, RX2S, RX1R or RX2R.
func EncodeRx(radio Radio, mode RxMode) ([]byte, error) {
	if !radio.Valid() {
		return nil, fmt.Errorf("%w: radio must be 1 or 2, got %d", ErrInvalidParam, radio)
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: invalid RX mode %d", ErrInvalidParam, mode)
	}

	var suffix string
	switch mode {
	case RxStereo:
		suffix = "S"
	case RxReverseStereo:
		suffix = "R"
	case RxMono:
	}

	return []byte(fmt.Sprintf("RX%c%s%s", radio.digit(), suffix, lineTerminator)), nil
}

// EncodeAux encodes an AUX output command (AUXpv).
//
// port must be 0-9; value is 0-255, encoded as variable-width decimal.
func EncodeAux(port, value uint8) ([]byte, error) {
	if port > 9 {
		return nil, fmt.Errorf("%w: AUX port must be 0-9, got %d", ErrInvalidParam, port)
	}

	return []byte(fmt.Sprintf("AUX%d%d%s", port, value, lineTerminator)), nil
}

// EncodeQueryName encodes a ?NAME query command.
func EncodeQueryName() []byte {
	return []byte("?NAME" + lineTerminator)
}

// EncodeQueryAux encodes a ?AUXp query command. port must be 0-9.
func EncodeQueryAux(port uint8) ([]byte, error) {
	if port > 9 {
		return nil, fmt.Errorf("%w: AUX port must be 0-9, got %d", ErrInvalidParam, port)
	}

	return []byte(fmt.Sprintf("?AUX%d%s", port, lineTerminator)), nil
}

// EncodeRaw encodes a raw command string with the CR terminator appended.
func EncodeRaw(cmd string) []byte {
	return []byte(cmd + lineTerminator)
}

// ParseNameResponse parses a ?NAME response line.
//
// Real OTRSP devices respond with a NAME prefix (e.g. "NAMESO2RDUINO");
// responses without the prefix are accepted as-is for compatibility.
func ParseNameResponse(line string) string {
	s := strings.TrimSpace(strings.Trim(line, "\r\n"))

	if rest, ok := strings.CutPrefix(s, "NAME"); ok {
		return strings.TrimSpace(rest)
	}

	return s
}

// ParseAuxResponse parses a ?AUX response line (AUXpv) into its port and value.
func ParseAuxResponse(line string) (port, value uint8, err error) {
	s := strings.TrimSpace(strings.Trim(line, "\r\n"))

	rest, ok := strings.CutPrefix(s, "AUX")
	if !ok {
		return 0, 0, fmt.Errorf("%w: expected AUX prefix, got %q", ErrProtocol, s)
	}
	if rest == "" {
		return 0, 0, fmt.Errorf("%w: AUX response missing port and value", ErrProtocol)
	}

	portDigit := rest[0]
	if portDigit < '0' || portDigit > '9' {
		return 0, 0, fmt.Errorf("%w: invalid AUX port digit %q", ErrProtocol, portDigit)
	}
	port = portDigit - '0'

	valueStr := rest[1:]
	v, parseErr := strconv.ParseUint(valueStr, 10, 8)
	if parseErr != nil {
		return 0, 0, fmt.Errorf("%w: invalid AUX value %q", ErrProtocol, valueStr)
	}

	return port, uint8(v), nil
}

package otrsp

import (
	"context"

	"github.com/chadsbrown/otrsp/logger"
)

// Device is the public handle for a connected OTRSP switch.
//
// Any number of goroutines may use a Device concurrently; they never touch
// the serial port directly, only the IO goroutine's request queue and the
// event bus.
type Device struct {
	cfg     *Config
	io      *ioTask
	bus     *EventBus
	info    SwitchInfo
	caps    SwitchCapabilities
	metrics *DeviceMetrics
	logger  logger.Logger
}

var _ So2rSwitch = (*Device)(nil)

// Info returns device metadata fixed at build time.
func (d *Device) Info() SwitchInfo { return d.info }

// Capabilities returns what the device supports.
func (d *Device) Capabilities() SwitchCapabilities { return d.caps }

// Metrics returns the connection metrics.
func (d *Device) Metrics() *DeviceMetrics { return d.metrics }

// State returns the current connection state.
func (d *Device) State() ConnState { return d.io.state.Get() }

// SetTx selects which radio receives transmit focus.
func (d *Device) SetTx(ctx context.Context, radio Radio) error {
	data, err := EncodeTx(radio)
	if err != nil {
		return err
	}

	if err := d.command(ctx, data); err != nil {
		return err
	}

	d.bus.Publish(SwitchEvent{Type: EventTxChanged, Radio: radio})

	return nil
}

// SetRx sets receive audio routing.
func (d *Device) SetRx(ctx context.Context, radio Radio, mode RxMode) error {
	data, err := EncodeRx(radio, mode)
	if err != nil {
		return err
	}

	if err := d.command(ctx, data); err != nil {
		return err
	}

	d.bus.Publish(SwitchEvent{Type: EventRxChanged, Radio: radio, Mode: mode})

	return nil
}

// SetAux sets an auxiliary BCD output value.
func (d *Device) SetAux(ctx context.Context, port, value uint8) error {
	data, err := EncodeAux(port, value)
	if err != nil {
		return err
	}

	if err := d.command(ctx, data); err != nil {
		return err
	}

	d.bus.Publish(SwitchEvent{Type: EventAuxChanged, Port: port, Value: value})

	return nil
}

// DeviceName queries the device name over the wire.
func (d *Device) DeviceName(ctx context.Context) (string, error) {
	line, err := d.query(ctx, EncodeQueryName())
	if err != nil {
		return "", err
	}

	return ParseNameResponse(line), nil
}

// QueryAux queries the current value of an auxiliary port.
//
// A reply that parses but reports a different port than requested is a
// protocol error, never a success; the returned AuxMismatchError names both
// ports.
func (d *Device) QueryAux(ctx context.Context, port uint8) (uint8, error) {
	data, err := EncodeQueryAux(port)
	if err != nil {
		return 0, err
	}

	line, err := d.query(ctx, data)
	if err != nil {
		return 0, err
	}

	returnedPort, value, err := ParseAuxResponse(line)
	if err != nil {
		d.metrics.incProtocolErrCount()

		return 0, err
	}

	if returnedPort != port {
		d.metrics.incProtocolErrCount()

		return 0, &AuxMismatchError{Requested: port, Returned: returnedPort}
	}

	return value, nil
}

// SendRaw sends a raw OTRSP command with the CR terminator appended.
func (d *Device) SendRaw(ctx context.Context, command string) error {
	return d.command(ctx, EncodeRaw(command))
}

// Subscribe returns a fresh subscription observing all events emitted from
// this point forward. Slow or absent subscribers never block the connection.
func (d *Device) Subscribe() *Subscription {
	return d.bus.Subscribe()
}

// Close requests a graceful teardown and waits for it to complete, so the
// caller observes a fully torn-down connection. Calling Close on an
// already-closed device is a no-op.
func (d *Device) Close(ctx context.Context) error {
	if !d.io.state.IsConnected() {
		d.logger.Debug("otrsp: close on already-closed connection")

		return nil
	}

	select {
	case d.io.reqChan <- &request{close: true}:
	case <-d.io.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-d.io.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// command enqueues a fire-and-forget request. It returns as soon as the
// write has been accepted by the queue, not necessarily flushed to the wire.
func (d *Device) command(ctx context.Context, data []byte) error {
	return d.io.queueRequest(ctx, &request{data: data})
}

// query enqueues a request expecting exactly one response line and awaits
// its reply slot.
func (d *Device) query(ctx context.Context, data []byte) (string, error) {
	req := &request{
		data:        data,
		expectReply: true,
		timeout:     d.cfg.commandTimeout,
		replyCh:     make(chan replyResult, 1),
	}

	if err := d.io.queueRequest(ctx, req); err != nil {
		return "", err
	}

	select {
	case res := <-req.replyCh:
		return res.line, res.err

	case <-d.io.done:
		// Teardown raced the request; prefer a resolved slot if one exists.
		select {
		case res := <-req.replyCh:
			return res.line, res.err
		default:
			return "", ErrConnClosed
		}

	case <-ctx.Done():
		return "", ctx.Err()
	}
}

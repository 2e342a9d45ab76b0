// Package otrsp implements a client for the Open Two Radio Switching Protocol
// (OTRSP), a line-oriented ASCII command protocol spoken over a serial line to
// SO2R switch devices.
//
// OTRSP devices accept fire-and-forget commands (TX selection, RX audio
// routing, AUX outputs) and a small number of query commands (?NAME, ?AUX)
// that return exactly one response line; they never send unsolicited data.
//
// A connection is created with Build (or BuildWithPort for tests), which
// optionally identifies the device with a ?NAME query, hands the port to a
// dedicated IO goroutine, and returns a Device handle. The IO goroutine is
// the sole owner of the port for the connection's lifetime; Device handles
// communicate with it only through a request queue and observe connectivity
// through an event bus.
//
// Example:
//
//	cfg, err := otrsp.NewConfig("/dev/ttyUSB0")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	dev, err := otrsp.Build(context.Background(), cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close(context.Background())
//
//	if err := dev.SetTx(context.Background(), otrsp.Radio1); err != nil {
//		log.Fatal(err)
//	}
package otrsp

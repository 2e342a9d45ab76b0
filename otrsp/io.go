package otrsp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chadsbrown/otrsp/internal/pool"
	"github.com/chadsbrown/otrsp/internal/task"
	"github.com/chadsbrown/otrsp/logger"
	"github.com/chadsbrown/otrsp/transport"
)

// replyResult is what the IO goroutine resolves a query's reply slot with:
// either the raw response line or a terminal error.
type replyResult struct {
	line string
	err  error
}

// request is one unit of work for the IO goroutine.
type request struct {
	// data is the exact wire bytes, including the terminator.
	data []byte

	// expectReply marks query commands; exactly one response line is read
	// for them before the next request is dequeued.
	expectReply bool

	// timeout is the reply deadline for query commands.
	timeout time.Duration

	// replyCh is the single-use reply slot for query commands. Capacity 1;
	// resolved exactly once. Nil for fire-and-forget commands.
	replyCh chan replyResult

	// close marks a graceful teardown request.
	close bool
}

// resolve delivers res to the reply slot, if any. The slot has capacity 1
// and is resolved at most once, so this never blocks.
func (r *request) resolve(res replyResult) {
	if r.replyCh != nil {
		r.replyCh <- res
	}
}

// ioTask is the sole owner of the transport for the connection's lifetime.
//
// It runs a single-goroutine cooperative loop: dequeue a request, write it,
// and, for queries, read exactly one response line before touching the queue
// again. At most one query is ever outstanding, so the response observed
// after writing query k always belongs to k.
type ioTask struct {
	port    transport.Port
	reqChan chan *request
	bus     *EventBus
	state   atomicConnState
	mgr     *task.Manager
	metrics *DeviceMetrics
	logger  logger.Logger

	sendTimeout time.Duration

	// done is closed when teardown completes; Device handles select on it
	// so no caller is ever left pending against a dead connection.
	done chan struct{}
}

func newIOTask(port transport.Port, cfg *Config, bus *EventBus, mgr *task.Manager, metrics *DeviceMetrics) *ioTask {
	t := &ioTask{
		port:        port,
		reqChan:     make(chan *request, cfg.queueSize),
		bus:         bus,
		mgr:         mgr,
		metrics:     metrics,
		logger:      cfg.logger,
		sendTimeout: cfg.commandTimeout,
		done:        make(chan struct{}),
	}
	t.state.state.Store(uint32(ConnectedState))

	return t
}

// start launches the IO loop as a managed task. All exit paths, including
// context cancellation and panics, funnel through teardown.
func (t *ioTask) start() error {
	return t.mgr.Start("ioLoop",
		t.loopIteration,
		func() { t.teardown(DisconnectGraceful) },
	)
}

// loopIteration performs a single iteration of the IO loop. It returns false
// to stop the loop.
func (t *ioTask) loopIteration() bool {
	select {
	case <-t.mgr.Context().Done():
		t.teardown(DisconnectGraceful)

		return false

	case req, ok := <-t.reqChan:
		if !ok {
			// All producers gone; nothing can ever arrive again.
			t.teardown(DisconnectGraceful)

			return false
		}

		return t.handleRequest(req)
	}
}

// handleRequest writes one request and, for queries, correlates its single
// response line.
func (t *ioTask) handleRequest(req *request) bool {
	if req.close {
		t.logger.Debug("otrsp: close requested")
		req.resolve(replyResult{})
		t.teardown(DisconnectGraceful)

		return false
	}

	if err := t.port.Write(req.data); err != nil {
		t.logger.Error("otrsp: write failed", "error", err)
		req.resolve(replyResult{err: fmt.Errorf("otrsp: write failed: %w", err)})
		t.teardown(DisconnectError)

		return false
	}

	if !req.expectReply {
		t.metrics.incCommandSendCount()

		return true
	}

	t.metrics.incQuerySendCount()

	return t.awaitReply(req)
}

// awaitReply reads the pending query's single response line with the
// request's deadline.
//
// A deadline expiry is non-fatal: the caller gets ErrTimeout and the
// connection stays up. Any other read failure is unrecoverable and triggers
// teardown.
func (t *ioTask) awaitReply(req *request) bool {
	line, err := t.port.ReadLine(req.timeout)

	switch {
	case err == nil:
		t.metrics.incReplyRecvCount()
		req.resolve(replyResult{line: line})

		return true

	case errors.Is(err, transport.ErrReadTimeout):
		t.metrics.incReplyTimeoutCount()
		t.logger.Warn("otrsp: reply timeout", "timeout", req.timeout)
		req.resolve(replyResult{err: ErrTimeout})

		return true

	default:
		t.logger.Error("otrsp: read failed", "error", err)
		req.resolve(replyResult{err: fmt.Errorf("otrsp: read failed: %w", err)})
		t.teardown(DisconnectError)

		return false
	}
}

// teardown is the single routine every terminal condition funnels through.
//
// The ToDisconnecting gate admits exactly one caller, so the port is closed
// once and the Disconnected event is emitted once no matter how many trigger
// paths fire.
func (t *ioTask) teardown(reason DisconnectReason) {
	if !t.state.ToDisconnecting() {
		return
	}

	t.logger.Debug("otrsp: connection teardown", "reason", reason)

	t.drainRequests()

	if err := t.port.Close(); err != nil {
		t.logger.Debug("otrsp: port close failed during teardown", "error", err)
	}

	t.bus.Publish(SwitchEvent{Type: EventDisconnected, Reason: reason})
	t.bus.Close()
	t.state.ToDisconnected()
	t.mgr.Stop()
	close(t.done)
}

// drainRequests resolves every request still queued at teardown so their
// callers observe an explicit closed error instead of hanging.
func (t *ioTask) drainRequests() {
	for {
		select {
		case req := <-t.reqChan:
			req.resolve(replyResult{err: ErrConnClosed})
		default:
			return
		}
	}
}

// queueRequest submits a request to the IO goroutine, bounded by the caller's
// context, the connection lifetime and the send timeout.
func (t *ioTask) queueRequest(ctx context.Context, req *request) error {
	if !t.state.IsConnected() {
		return ErrConnClosed
	}

	timer := pool.GetTimer(t.sendTimeout)
	defer pool.PutTimer(timer)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrConnClosed
	case <-timer.C:
		return ErrSendTimeout
	case t.reqChan <- req:
		return nil
	}
}

package otrsp

import (
	"sync/atomic"
)

// DeviceMetrics contains atomic metrics for an OTRSP connection.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type DeviceMetrics struct {
	// CommandSendCount indicates the number of fire-and-forget commands written.
	CommandSendCount atomic.Uint64
	// QuerySendCount indicates the number of query commands written.
	QuerySendCount atomic.Uint64
	// ReplyRecvCount indicates the number of response lines delivered to callers.
	ReplyRecvCount atomic.Uint64
	// ReplyTimeoutCount indicates the number of queries that timed out.
	ReplyTimeoutCount atomic.Uint64
	// ProtocolErrCount indicates the number of responses rejected by validation.
	ProtocolErrCount atomic.Uint64
	// DrainedLineCount indicates the number of stale lines discarded by the
	// startup drain pass.
	DrainedLineCount atomic.Uint64
}

func (m *DeviceMetrics) incCommandSendCount() {
	m.CommandSendCount.Add(1)
}

func (m *DeviceMetrics) incQuerySendCount() {
	m.QuerySendCount.Add(1)
}

func (m *DeviceMetrics) incReplyRecvCount() {
	m.ReplyRecvCount.Add(1)
}

func (m *DeviceMetrics) incReplyTimeoutCount() {
	m.ReplyTimeoutCount.Add(1)
}

func (m *DeviceMetrics) incProtocolErrCount() {
	m.ProtocolErrCount.Add(1)
}

func (m *DeviceMetrics) incDrainedLineCount() {
	m.DrainedLineCount.Add(1)
}

package mfc

import (
	"sync/atomic"
)

// DriverMetrics contains atomic metrics for one driver instance.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type DriverMetrics struct {
	// ReadCount indicates the number of successful telemetry reads.
	ReadCount atomic.Uint64
	// WriteCount indicates the number of successful write-side operations.
	WriteCount atomic.Uint64
	// ErrorCount indicates the number of failed device operations.
	ErrorCount atomic.Uint64
	// SimulatedCount indicates the number of operations answered in
	// simulation mode without touching the transport.
	SimulatedCount atomic.Uint64
}

// IncReadCount increments the successful read counter.
func (m *DriverMetrics) IncReadCount() {
	m.ReadCount.Add(1)
}

// IncWriteCount increments the successful write counter.
func (m *DriverMetrics) IncWriteCount() {
	m.WriteCount.Add(1)
}

// IncErrorCount increments the failed operation counter.
func (m *DriverMetrics) IncErrorCount() {
	m.ErrorCount.Add(1)
}

// IncSimulatedCount increments the simulated operation counter.
func (m *DriverMetrics) IncSimulatedCount() {
	m.SimulatedCount.Add(1)
}

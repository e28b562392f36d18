// Package metrics holds process-wide, lock-free counters for the engine,
// exposed over the REST /metrics route.
package metrics

import (
	"encoding/json"
	"math"
	"sync/atomic"
	"time"
)

// MaxLatencyMicros bounds the submission-latency histogram: up to 100ms
// tracked at 1us resolution: anything slower is folded into the last bucket.
const MaxLatencyMicros = 100_000

// Metrics is a set of thread-safe counters updated from the REST command
// handlers and read concurrently by the REST /metrics handler.
type Metrics struct {
	StartTime       time.Time
	OrdersSubmitted atomic.Int64
	OrdersCancelled atomic.Int64
	OrdersRejected  atomic.Int64
	TradesExecuted  atomic.Int64
	TotalLatency    atomic.Int64 // microseconds, summed across submissions

	// LatencyHistogram[i] counts submissions that took i microseconds;
	// the last bucket absorbs everything >= MaxLatencyMicros.
	LatencyHistogram [MaxLatencyMicros + 1]atomic.Int64
}

// New creates a Metrics struct with its clock started.
func New() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

func (m *Metrics) IncOrdersSubmitted() { m.OrdersSubmitted.Add(1) }
func (m *Metrics) IncOrdersCancelled() { m.OrdersCancelled.Add(1) }
func (m *Metrics) IncOrdersRejected()  { m.OrdersRejected.Add(1) }

// AddTrades records count trades produced by one submission.
func (m *Metrics) AddTrades(count int64) { m.TradesExecuted.Add(count) }

// ObserveLatency records how long one Submit/Cancel call took, in
// microseconds, both as a running total and in the percentile histogram.
func (m *Metrics) ObserveLatency(microseconds int64) {
	m.TotalLatency.Add(microseconds)
	idx := microseconds
	if idx > MaxLatencyMicros {
		idx = MaxLatencyMicros
	}
	if idx < 0 {
		idx = 0
	}
	m.LatencyHistogram[idx].Add(1)
}

func (m *Metrics) percentile(p float64, total int64) float64 {
	if total == 0 {
		return 0
	}
	target := int64(math.Ceil(float64(total) * p))
	var seen int64
	for i := 0; i <= MaxLatencyMicros; i++ {
		seen += m.LatencyHistogram[i].Load()
		if seen >= target {
			return float64(i) / 1000.0
		}
	}
	return float64(MaxLatencyMicros) / 1000.0
}

// MarshalJSON renders the snapshot served at GET /metrics.
func (m *Metrics) MarshalJSON() ([]byte, error) {
	submitted := m.OrdersSubmitted.Load()

	avgLatency := 0.0
	if submitted > 0 {
		avgLatency = float64(m.TotalLatency.Load()) / float64(submitted) / 1000.0
	}

	uptime := time.Since(m.StartTime).Seconds()
	throughput := 0.0
	if uptime > 0 {
		throughput = float64(submitted) / uptime
	}

	return json.Marshal(map[string]any{
		"orders_submitted":          submitted,
		"orders_cancelled":          m.OrdersCancelled.Load(),
		"orders_rejected":           m.OrdersRejected.Load(),
		"trades_executed":           m.TradesExecuted.Load(),
		"latency_avg_ms":            avgLatency,
		"latency_p50_ms":            m.percentile(0.50, submitted),
		"latency_p99_ms":            m.percentile(0.99, submitted),
		"latency_p999_ms":           m.percentile(0.999, submitted),
		"throughput_orders_per_sec": throughput,
	})
}

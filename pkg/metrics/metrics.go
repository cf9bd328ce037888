// Package metrics exposes Prometheus metrics for kdbml: conversions by kind,
// converter diagnostics, query and conversion latency, open connections and
// exported bytes.
//
// # Basic Usage
//
//	collector := metrics.NewCollector("converter")
//
//	timer := metrics.NewTimer()
//	result := conv.Dispatch(x)
//	collector.RecordConversion(metrics.KindTable, metrics.StatusOK, timer.Stop())
//
//	collector.RecordDiagnostic(metrics.ReasonUnsupportedType)
//
// All metrics are registered with the default Prometheus registry on package
// initialisation and are safe for concurrent use.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Conversion kinds, one per dispatcher branch.
const (
	KindAtom   = "atom"
	KindVector = "vector"
	KindTable  = "table"
	KindDict   = "dict"
	KindVoid   = "void"
	KindError  = "error"
	KindNone   = "none"
	KindOther  = "unsupported"
)

// Outcome labels.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusFailed   = "failed"
)

// Diagnostic reasons.
const (
	ReasonUnsupportedType = "unsupported_type"
	ReasonQueryError      = "query_error"
	ReasonNoResult        = "no_result"
	ReasonInvalidFields   = "invalid_fields"
)

var (
	// Conversions counts dispatcher runs.
	// Labels: kind (dispatcher branch), status (ok/degraded/failed)
	Conversions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kdbml_conversions_total",
			Help: "Total number of values converted",
		},
		[]string{"kind", "status"},
	)

	// Diagnostics counts non-fatal converter diagnostics.
	// Labels: component (collector name), reason
	Diagnostics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kdbml_diagnostics_total",
			Help: "Total number of conversion diagnostics",
		},
		[]string{"component", "reason"},
	)

	// ConversionLatency tracks conversion time in nanoseconds.
	ConversionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "kdbml_conversion_latency_nanoseconds",
			Help: "Conversion latency in nanoseconds",
			Buckets: []float64{
				1000,  // 1μs - atoms
				10000, // 10μs
				1e5,   // 100μs - small tables
				1e6,   // 1ms
				1e7,   // 10ms - large tables
				1e8,   // 100ms
				1e9,   // 1s
			},
		},
		[]string{"kind"},
	)

	// QueryLatency tracks the query round trip in nanoseconds.
	QueryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "kdbml_query_latency_nanoseconds",
			Help: "Query round-trip latency in nanoseconds",
			Buckets: []float64{
				1e5, // 100μs - local process
				1e6, // 1ms
				1e7, // 10ms
				1e8, // 100ms
				1e9, // 1s
				1e10,
			},
		},
		[]string{"status"},
	)

	// ActiveConnections tracks open kdb+ connections.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kdbml_active_connections",
			Help: "Number of open kdb+ connections",
		},
	)

	// ExportedBytes counts bytes written by exporters.
	// Labels: format (json/csv/arrow), scheme (file/stdout/s3/gs/kafka)
	ExportedBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kdbml_exported_bytes_total",
			Help: "Total number of bytes exported",
		},
		[]string{"format", "scheme"},
	)
)

// Collector records metrics on behalf of one component. The component name
// labels the diagnostics it records.
type Collector struct {
	name string
}

// NewCollector creates a collector for the named component.
func NewCollector(name string) *Collector {
	return &Collector{name: name}
}

// RecordConversion counts one dispatcher run and observes its duration.
func (c *Collector) RecordConversion(kind, status string, d time.Duration) {
	Conversions.WithLabelValues(kind, status).Inc()
	ConversionLatency.WithLabelValues(kind).Observe(float64(d.Nanoseconds()))
}

// RecordDiagnostic counts one converter diagnostic.
func (c *Collector) RecordDiagnostic(reason string) {
	Diagnostics.WithLabelValues(c.name, reason).Inc()
}

// RecordQuery observes a query round trip.
func (c *Collector) RecordQuery(status string, d time.Duration) {
	QueryLatency.WithLabelValues(status).Observe(float64(d.Nanoseconds()))
}

// ConnectionOpened increments the open connection gauge.
func (c *Collector) ConnectionOpened() { ActiveConnections.Inc() }

// ConnectionClosed decrements the open connection gauge.
func (c *Collector) ConnectionClosed() { ActiveConnections.Dec() }

// RecordExport counts bytes written by an exporter.
func (c *Collector) RecordExport(format, scheme string, n int64) {
	ExportedBytes.WithLabelValues(format, scheme).Add(float64(n))
}

// Timer measures an operation from creation to Stop.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the time elapsed since the timer was created. It may be
// called more than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// Package metrics provides Prometheus metrics for batch conversions
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for a conversion run
type Metrics struct {
	Registry *prometheus.Registry

	// Load metrics
	DocumentsLoadedTotal prometheus.Counter
	DocumentsFailedTotal prometheus.Counter
	DuplicateIDsTotal    prometheus.Counter

	// Conversion metrics
	ConversionsTotal      *prometheus.CounterVec
	ConversionErrorsTotal *prometheus.CounterVec
	ConversionDuration    *prometheus.HistogramVec
	DocumentsWrittenTotal *prometheus.CounterVec

	// Cache metrics
	CacheLookupsTotal *prometheus.CounterVec
}

// NewMetrics creates all metrics on a private registry, so several runs in
// one process never collide on registration
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{Registry: reg}

	m.DocumentsLoadedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "iocwriter_documents_loaded_total",
			Help: "Total number of IOC documents parsed successfully",
		},
	)

	m.DocumentsFailedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "iocwriter_documents_failed_total",
			Help: "Total number of IOC files that failed to parse",
		},
	)

	m.DuplicateIDsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "iocwriter_duplicate_ids_total",
			Help: "Total number of documents replaced by a later document with the same id",
		},
	)

	m.ConversionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iocwriter_conversions_total",
			Help: "Total number of successful conversions",
		},
		[]string{"direction", "classification"},
	)

	m.ConversionErrorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iocwriter_conversion_errors_total",
			Help: "Total number of documents that failed to convert",
		},
		[]string{"direction"},
	)

	m.ConversionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iocwriter_conversion_duration_seconds",
			Help:    "Duration of single-document conversions in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"direction"},
	)

	m.DocumentsWrittenTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iocwriter_documents_written_total",
			Help: "Total number of documents written to disk",
		},
		[]string{"bucket"},
	)

	m.CacheLookupsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iocwriter_cache_lookups_total",
			Help: "Total number of conversion cache lookups",
		},
		[]string{"result"},
	)

	return m
}

// RecordLoad records the outcome of loading a batch of files
func (m *Metrics) RecordLoad(loaded, failed, duplicates int) {
	m.DocumentsLoadedTotal.Add(float64(loaded))
	m.DocumentsFailedTotal.Add(float64(failed))
	m.DuplicateIDsTotal.Add(float64(duplicates))
}

// RecordConversion records a successful conversion
func (m *Metrics) RecordConversion(direction, classification string, duration time.Duration) {
	m.ConversionsTotal.WithLabelValues(direction, classification).Inc()
	m.ConversionDuration.WithLabelValues(direction).Observe(duration.Seconds())
}

// RecordConversionError records a failed conversion
func (m *Metrics) RecordConversionError(direction string) {
	m.ConversionErrorsTotal.WithLabelValues(direction).Inc()
}

// RecordWrite records documents written into an output bucket
func (m *Metrics) RecordWrite(bucket string, count int) {
	m.DocumentsWrittenTotal.WithLabelValues(bucket).Add(float64(count))
}

// RecordCacheLookup records a cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// WriteTextfile writes every metric in the node_exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

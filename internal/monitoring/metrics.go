// Package monitoring records batch metrics and evaluates run history
// against alert thresholds.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"

	"github.com/SM97490/agent-produits-distrisku/internal/model"
)

const namespace = "distrisku"

// Metrics holds the counters for one process. It uses a private registry so
// tests and repeated batches never collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	rowsProcessed prometheus.Counter
	rowsValidated prometheus.Counter
	rowsSkipped   prometheus.Counter
	resolutions   *prometheus.CounterVec
	qualityScore  prometheus.Histogram
	batchDuration prometheus.Gauge
}

// NewMetrics creates and registers the batch metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rowsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_processed_total",
			Help:      "Rows enriched and written to the output sheet.",
		}),
		rowsValidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_validated_total",
			Help:      "Processed rows whose quality score reached the threshold.",
		}),
		rowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Rows dropped for a missing SKU or price, or a processing error.",
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "SKU resolutions by the path that produced the record.",
		}, []string{"source"}),
		qualityScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quality_score",
			Help:      "Quality score of processed rows.",
			Buckets:   []float64{50, 60, 70, 80, 90, 95, 100},
		}),
		batchDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_batch_duration_seconds",
			Help:      "Wall time of the most recent batch.",
		}),
	}
	m.registry.MustRegister(
		m.rowsProcessed,
		m.rowsValidated,
		m.rowsSkipped,
		m.resolutions,
		m.qualityScore,
		m.batchDuration,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RowSkipped counts a row that produced no output.
func (m *Metrics) RowSkipped() { m.rowsSkipped.Inc() }

// RowProcessed counts an output row and its score.
func (m *Metrics) RowProcessed(score float64, validated bool) {
	m.rowsProcessed.Inc()
	if validated {
		m.rowsValidated.Inc()
	}
	m.qualityScore.Observe(score)
}

// ObserveResolution counts a freshly resolved record by source.
func (m *Metrics) ObserveResolution(rec model.ProductRecord) {
	source := string(rec.Source)
	if source == "" {
		source = "unknown"
	}
	m.resolutions.WithLabelValues(source).Inc()
}

// BatchFinished records the batch wall time.
func (m *Metrics) BatchFinished(d time.Duration) {
	m.batchDuration.Set(d.Seconds())
}

// WriteTextfile writes the registry in the node-exporter textfile format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return eris.Wrapf(prometheus.WriteToTextfile(path, m.registry), "monitoring: write textfile %s", path)
}

package extraction

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the extraction pipeline.
type Metrics struct {
	ExtractionsTotal *prometheus.CounterVec
	DraftsTotal      prometheus.Counter
	DroppedTotal     prometheus.Counter
	Duration         *prometheus.HistogramVec
}

// NewMetrics returns the process-wide extraction metrics, registering them
// on first use.
//
//   - minutes_extractions_total{outcome}
//   - minutes_extraction_drafts_total
//   - minutes_extraction_dropped_total
//   - minutes_extraction_duration_seconds{provider}
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			ExtractionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "minutes_extractions_total",
					Help: "Extraction attempts by outcome",
				},
				[]string{"outcome"},
			),
			DraftsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "minutes_extraction_drafts_total",
				Help: "Drafts staged from generator output",
			}),
			DroppedTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "minutes_extraction_dropped_total",
				Help: "Payload parts dropped during sanitization",
			}),
			Duration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "minutes_extraction_duration_seconds",
					Help:    "Duration of generator calls in seconds",
					Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
				},
				[]string{"provider"},
			),
		}
	})
	return globalMetrics
}

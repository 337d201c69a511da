package generator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shouni/image-stream-kit/pkg/domain"
)

// Metrics は画像生成の Prometheus メトリクスです。nil のままでも安全に呼べます。
type Metrics struct {
	requests     *prometheus.CounterVec
	tierOutcomes *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// NewMetrics はメトリクスを生成して reg に登録します。reg が nil なら登録しません。
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_generation_requests_total",
				Help:      "Total number of image generation calls",
			},
			[]string{"provider", "outcome"},
		),
		tierOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_extraction_tier_outcomes_total",
				Help:      "Payload extraction tier results",
			},
			[]string{"provider", "tier", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "image_generation_duration_seconds",
				Help:      "Image generation call duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"provider"},
		),
	}
}

func (m *Metrics) observeRequest(provider domain.Provider, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.requests.WithLabelValues(string(provider), outcome).Inc()
	m.duration.WithLabelValues(string(provider)).Observe(elapsed.Seconds())
}

func (m *Metrics) observeTiers(provider domain.Provider, attempts []TierAttempt) {
	if m == nil {
		return
	}
	for _, a := range attempts {
		outcome := "miss"
		if a.Outcome.Hit() {
			outcome = "hit"
		}
		m.tierOutcomes.WithLabelValues(string(provider), a.Tier, outcome).Inc()
	}
}

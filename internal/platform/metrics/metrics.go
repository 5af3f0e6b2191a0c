package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine-wide Prometheus metrics
type Metrics struct {
	// Validation passes by field type and result ("valid" or the error kind)
	Validations *prometheus.CounterVec

	// Tasks waiting on the event loop
	QueueDepth prometheus.Gauge

	// Form sessions started
	Sessions prometheus.Counter
}

// New creates the metrics and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Validations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formcheck_validations_total",
			Help: "Validation passes by field type and result",
		}, []string{"field", "result"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "formcheck_loop_queue_depth",
			Help: "Tasks queued on the form event loop",
		}),
		Sessions: factory.NewCounter(prometheus.CounterOpts{
			Name: "formcheck_sessions_total",
			Help: "Form sessions started",
		}),
	}
}

// IncrementValidation counts one validation pass.
func (m *Metrics) IncrementValidation(field, result string) {
	if m != nil {
		m.Validations.WithLabelValues(field, result).Inc()
	}
}

func (m *Metrics) SetQueueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}

// IncrementSessions increments the sessions counter by 1
func (m *Metrics) IncrementSessions() {
	if m != nil {
		m.Sessions.Inc()
	}
}

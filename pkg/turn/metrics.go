package turn

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the controller's prometheus collectors.
type Metrics struct {
	Ticks         prometheus.Counter
	Transitions   *prometheus.CounterVec
	Rejected      *prometheus.CounterVec
	Expiries      prometheus.Counter
	QueueRequests prometheus.Counter
	TickDuration  prometheus.Histogram
	ActionQueued  prometheus.Gauge
	ActionRunning prometheus.Gauge
}

// NewMetrics registers the controller collectors on reg.
// Pass prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "floor_ticks_total",
			Help: "Turn-taking ticks evaluated",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "floor_state_transitions_total",
			Help: "Turn-holder state transitions",
		}, []string{"from", "to"}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "floor_ticks_rejected_total",
			Help: "Ticks rejected before or during evaluation",
		}, []string{"reason"}),
		Expiries: f.NewCounter(prometheus.CounterOpts{
			Name: "floor_action_expiries_total",
			Help: "Running actions cleared by the safety ceiling",
		}),
		QueueRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "floor_queue_requests_total",
			Help: "QueueAction calls",
		}),
		TickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "floor_tick_duration_us",
			Help:    "Wall time of one tick in microseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}),
		ActionQueued: f.NewGauge(prometheus.GaugeOpts{
			Name: "floor_action_queued",
			Help: "1 while an action waits for the floor",
		}),
		ActionRunning: f.NewGauge(prometheus.GaugeOpts{
			Name: "floor_action_running",
			Help: "1 while the robot executes its turn",
		}),
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

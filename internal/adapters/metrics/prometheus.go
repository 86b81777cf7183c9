package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/domain"
	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

const namespace = "donation_process"

// Prometheus records workflow activity on the given registerer.
type Prometheus struct {
	transitions        *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	reservations       *prometheus.CounterVec
}

var _ ports.WorkflowMetrics = (*Prometheus)(nil)

func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Transitions attempted, by transition and result.",
		}, []string{"transition", "result"}),
		transitionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transition_duration_seconds",
			Help:      "Time spent applying a transition.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transition"}),
		reservations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_reservations_total",
			Help:      "Slot reservation attempts, by result.",
		}, []string{"result"}),
	}
}

func (p *Prometheus) ObserveTransition(t domain.Transition, result string, elapsed time.Duration) {
	p.transitions.WithLabelValues(string(t), result).Inc()
	p.transitionDuration.WithLabelValues(string(t)).Observe(elapsed.Seconds())
}

func (p *Prometheus) ObserveReservation(result string) {
	p.reservations.WithLabelValues(result).Inc()
}

package campaign

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/terra-clan/jury-engine/internal/models"
)

// Metrics counts lifecycle operations. A nil *Metrics records nothing.
type Metrics struct {
	roundsCreated      *prometheus.CounterVec
	transitions        *prometheus.CounterVec
	activationsRefused prometheus.Counter
}

// NewMetrics creates the lifecycle counters and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		roundsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jury",
			Name:      "rounds_created_total",
			Help:      "Rounds created, by vote method.",
		}, []string{"vote_method"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jury",
			Name:      "round_transitions_total",
			Help:      "Round status changes, by target status.",
		}, []string{"status"}),
		activationsRefused: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jury",
			Name:      "round_activations_refused_total",
			Help:      "Activations refused because of campaign ordering or a closed round.",
		}),
	}
	reg.MustRegister(m.roundsCreated, m.transitions, m.activationsRefused)
	return m
}

func (m *Metrics) roundCreated(method models.VoteMethod) {
	if m == nil {
		return
	}
	m.roundsCreated.WithLabelValues(string(method)).Inc()
}

func (m *Metrics) transition(to models.RoundStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(to)).Inc()
}

func (m *Metrics) activationRefused() {
	if m == nil {
		return
	}
	m.activationsRefused.Inc()
}

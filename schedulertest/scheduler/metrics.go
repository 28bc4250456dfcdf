package meshscheduler

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "meshscheduler"

// Metrics counts search activity per solver. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Iterations       *prometheus.CounterVec
	Candidates       *prometheus.CounterVec
	Transitions      *prometheus.CounterVec
	CrossoverAborted prometheus.Counter
	Mutations        prometheus.Counter
	Replacements     prometheus.Counter
	BestAllocated    *prometheus.GaugeVec
	BestValue        *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "iterations_total",
			Help:      "Search iterations run, by solver.",
		}, []string{"solver"}),
		Candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "candidates_total",
			Help:      "Candidate solutions generated, by solver.",
		}, []string{"solver"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "transitions_total",
			Help:      "Iterations that moved to a new current solution, by solver.",
		}, []string{"solver"}),
		CrossoverAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "genetic",
			Name:      "crossover_aborted_total",
			Help:      "Crossovers discarded because a task could not be repaired.",
		}),
		Mutations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "genetic",
			Name:      "mutations_total",
			Help:      "Mutations applied to population members.",
		}),
		Replacements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "genetic",
			Name:      "replacements_total",
			Help:      "Children that replaced the worst population member.",
		}),
		BestAllocated: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "best_allocated_workflows",
			Help:      "Allocated workflows of the best solution found, by solver.",
		}, []string{"solver"}),
		BestValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "best_value",
			Help:      "Evaluator value of the best solution found, by solver.",
		}, []string{"solver"}),
	}
	if reg != nil {
		reg.MustRegister(m.Iterations, m.Candidates, m.Transitions,
			m.CrossoverAborted, m.Mutations, m.Replacements,
			m.BestAllocated, m.BestValue)
	}
	return m
}

func (m *Metrics) iteration(solver string) {
	if m == nil {
		return
	}
	m.Iterations.WithLabelValues(solver).Inc()
}

func (m *Metrics) candidates(solver string, n int) {
	if m == nil {
		return
	}
	m.Candidates.WithLabelValues(solver).Add(float64(n))
}

func (m *Metrics) transition(solver string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(solver).Inc()
}

func (m *Metrics) crossoverAborted() {
	if m == nil {
		return
	}
	m.CrossoverAborted.Inc()
}

func (m *Metrics) mutation() {
	if m == nil {
		return
	}
	m.Mutations.Inc()
}

func (m *Metrics) replacement() {
	if m == nil {
		return
	}
	m.Replacements.Inc()
}

func (m *Metrics) observeBest(solver string, s *Solution) {
	if m == nil || s == nil {
		return
	}
	score := s.Evaluate()
	m.BestAllocated.WithLabelValues(solver).Set(float64(score.Allocated))
	m.BestValue.WithLabelValues(solver).Set(score.Value)
}

package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Guard outcomes, used as the outcome label
const (
	OutcomeUnprotected = "unprotected"
	OutcomeGranted     = "granted"
	OutcomeLogin       = "login"
	OutcomeForbidden   = "forbidden"
)

// Metrics holds the storefront's Prometheus collectors
type Metrics struct {
	// GuardDecisions counts route guard decisions by outcome.
	GuardDecisions *prometheus.CounterVec

	// AuthAttempts counts form sign-ins and registrations by action and result.
	AuthAttempts *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GuardDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cellar_guard_decisions_total",
				Help: "Total route guard decisions by outcome.",
			},
			[]string{"outcome"},
		),
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cellar_auth_attempts_total",
				Help: "Total sign-in and registration attempts by action and result.",
			},
			[]string{"action", "result"},
		),
	}
	reg.MustRegister(m.GuardDecisions, m.AuthAttempts)
	return m
}

// Package metrics exposes the portal's Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps the portal's private registry.
type Metrics struct {
	registry    *prometheus.Registry
	logins      *prometheus.CounterVec
	derivations *prometheus.CounterVec
	checks      *prometheus.CounterVec
	consoleErrs *prometheus.CounterVec
}

// New creates a registry with process collectors and the portal counters.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	derivations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_permission_derivations_total",
		Help: "Permission index rebuilds by user class and outcome.",
	}, []string{"class", "outcome"})

	checks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_gate_decisions_total",
		Help: "Access gate decisions by surface and result.",
	}, []string{"surface", "result"})

	consoleErrs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_console_failures_total",
		Help: "Admin console operations that failed against the backend.",
	}, []string{"operation"})

	registry.MustRegister(logins, derivations, checks, consoleErrs)

	return &Metrics{
		registry:    registry,
		logins:      logins,
		derivations: derivations,
		checks:      checks,
		consoleErrs: consoleErrs,
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// All recorders are nil-safe so components can run without metrics.

func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Derivation(class, outcome string) {
	if m == nil {
		return
	}
	m.derivations.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) GateDecision(surface string, allowed bool) {
	if m == nil {
		return
	}
	result := "deny"
	if allowed {
		result = "allow"
	}
	m.checks.WithLabelValues(surface, result).Inc()
}

func (m *Metrics) ConsoleFailure(operation string) {
	if m == nil {
		return
	}
	m.consoleErrs.WithLabelValues(operation).Inc()
}

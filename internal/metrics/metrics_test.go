package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.Login("success")
	m.Login("success")
	m.Derivation("admin", "fallback")
	m.GateDecision("route", false)
	m.ConsoleFailure("delete_role")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.logins.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.derivations.WithLabelValues("admin", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checks.WithLabelValues("route", "deny")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "portal_console_failures_total")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Login("x")
		m.Derivation("a", "b")
		m.GateDecision("s", true)
		m.ConsoleFailure("op")
	})
}

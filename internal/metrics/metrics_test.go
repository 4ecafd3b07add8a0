package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("test", reg)

	m.LoginAttempt(LoginSuccess)
	m.LoginAttempt(LoginInvalidCredentials)
	m.LoginAttempt(LoginInvalidCredentials)
	m.Registered("worker")
	m.GuardDecision("PUBLIC")
	m.RateLimited("login")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginAttempts.WithLabelValues(LoginSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.loginAttempts.WithLabelValues(LoginInvalidCredentials)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.registrations.WithLabelValues("worker")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.guardDecisions.WithLabelValues("PUBLIC")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited.WithLabelValues("login")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.LoginAttempt(LoginSuccess)
		m.Registered("user")
		m.GuardDecision("PUBLIC")
		m.RateLimited("register")
	})
}

func TestMetrics_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("test", reg)
	m.Registered("user")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `test_auth_registrations_total{kind="user"} 1`))
}

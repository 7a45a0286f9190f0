package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the broker's Prometheus collectors. A nil *Metrics is valid
// and records nothing, so tests can run without a registry.
type Metrics struct {
	loginAttempts   *prometheus.CounterVec
	sessionRestores *prometheus.CounterVec
}

// NewMetrics registers the broker collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		loginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatehouse",
			Subsystem: "session",
			Name:      "login_attempts_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		sessionRestores: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gatehouse",
			Subsystem: "session",
			Name:      "restores_total",
			Help:      "Cookie revalidation outcomes by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) loginResult(result string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) restoreResult(result string) {
	if m == nil {
		return
	}
	m.sessionRestores.WithLabelValues(result).Inc()
}

package session

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts session lifecycle events. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	issued    prometheus.Counter
	validated *prometheus.CounterVec
	revoked   prometheus.Counter
}

// NewMetrics creates the session counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		issued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cloudsystem",
			Subsystem: "session",
			Name:      "issued_total",
			Help:      "Sessions issued by signup, login and password reset.",
		}),
		validated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cloudsystem",
			Subsystem: "session",
			Name:      "validations_total",
			Help:      "Bearer token validations by outcome.",
		}, []string{"result"}),
		revoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cloudsystem",
			Subsystem: "session",
			Name:      "revocations_total",
			Help:      "Logout calls that revoked a user's sessions.",
		}),
	}
	reg.MustRegister(m.issued, m.validated, m.revoked)
	return m
}

func (m *Metrics) incIssued() {
	if m != nil {
		m.issued.Inc()
	}
}

func (m *Metrics) incValidated(result string) {
	if m != nil {
		m.validated.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) incRevoked() {
	if m != nil {
		m.revoked.Inc()
	}
}

package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts protocol outcomes that operators act on. A nil *Metrics records nothing.
type Metrics struct {
	versionsCreated      prometheus.Counter
	editConflicts        prometheus.Counter
	inconsistentState    *prometheus.CounterVec
	eventPublishFailures prometheus.Counter
}

// NewMetrics creates and registers the engine's collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		versionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docvault_versions_created_total",
			Help: "Total number of document versions whose pointer update committed.",
		}),
		editConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docvault_edit_conflicts_total",
			Help: "Total number of edits that lost the conditional update.",
		}),
		inconsistentState: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docvault_inconsistent_state_total",
			Help: "Total number of requests that observed a missing blob or a history gap.",
		}, []string{"operation"}),
		eventPublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docvault_event_publish_failures_total",
			Help: "Total number of version events that could not be published.",
		}),
	}

	for _, c := range []prometheus.Collector{m.versionsCreated, m.editConflicts, m.inconsistentState, m.eventPublishFailures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) versionCreated() {
	if m != nil {
		m.versionsCreated.Inc()
	}
}

func (m *Metrics) conflict() {
	if m != nil {
		m.editConflicts.Inc()
	}
}

func (m *Metrics) inconsistent(op string) {
	if m != nil {
		m.inconsistentState.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) publishFailed() {
	if m != nil {
		m.eventPublishFailures.Inc()
	}
}

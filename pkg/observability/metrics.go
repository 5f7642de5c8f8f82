package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors
type Metrics struct {
	DragsStarted   prometheus.Counter
	DragsCommitted prometheus.Counter
	DragsCancelled prometheus.Counter
	DragConflicts  prometheus.Counter
	SaveRetries    prometheus.Counter
	SaveFailures   prometheus.Counter
	LocksDenied    prometheus.Counter
	LocksExpired   prometheus.Counter
	RemoteUpdates  prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers the engine metrics on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		DragsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "priomatrix_drags_started_total",
			Help: "Number of drag sessions granted a lock and started.",
		}),
		DragsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "priomatrix_drags_committed_total",
			Help: "Number of drag sessions committed durably.",
		}),
		DragsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "priomatrix_drags_cancelled_total",
			Help: "Number of drag sessions cancelled by the user.",
		}),
		DragConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "priomatrix_drag_conflicts_total",
			Help: "Number of commits rejected because the card changed remotely.",
		}),
		SaveRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "priomatrix_save_retries_total",
			Help: "Number of commit save attempts retried after a transient failure.",
		}),
		SaveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "priomatrix_save_failures_total",
			Help: "Number of commits abandoned after exhausting save retries.",
		}),
		LocksDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "priomatrix_locks_denied_total",
			Help: "Number of lock acquisitions refused due to contention.",
		}),
		LocksExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "priomatrix_locks_expired_total",
			Help: "Number of abandoned locks removed by the lease sweeper.",
		}),
		RemoteUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "priomatrix_remote_updates_total",
			Help: "Number of remote collaborator updates applied to the store.",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.DragsStarted,
		m.DragsCommitted,
		m.DragsCancelled,
		m.DragConflicts,
		m.SaveRetries,
		m.SaveFailures,
		m.LocksDenied,
		m.LocksExpired,
		m.RemoteUpdates,
	)

	return m
}

// Registry exposes the underlying registry for the /metrics endpoint
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

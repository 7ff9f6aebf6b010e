package coordinator

import "github.com/powersoftau/ceremony/metrics"

// Metrics groups the counters the coordinator exposes for operational
// visibility into the ceremony's progress. Every counter and gauge here is
// registered into metrics.DefaultRegistry rather than built standalone, so
// they also appear in a Registry.Snapshot() (GET /v1/health pulls one).
type Metrics struct {
	LocksAcquired      *metrics.Counter
	LocksExpired       *metrics.Counter
	ContributionsAdded *metrics.Counter
	Verifications      *metrics.Counter
	RoundsCompleted    *metrics.Counter
	CurrentRoundHeight *metrics.Gauge

	// RequestRate tracks inbound HTTP requests, marked once per request by
	// MetricsMiddleware.
	RequestRate *metrics.Meter
}

func NewMetrics() *Metrics {
	return &Metrics{
		LocksAcquired:      metrics.DefaultRegistry.Counter("coordinator_locks_acquired_total"),
		LocksExpired:       metrics.DefaultRegistry.Counter("coordinator_locks_expired_total"),
		ContributionsAdded: metrics.DefaultRegistry.Counter("coordinator_contributions_added_total"),
		Verifications:      metrics.DefaultRegistry.Counter("coordinator_verifications_total"),
		RoundsCompleted:    metrics.DefaultRegistry.Counter("coordinator_rounds_completed_total"),
		CurrentRoundHeight: metrics.DefaultRegistry.Gauge("coordinator_current_round_height"),
		RequestRate:        metrics.NewMeter(),
	}
}

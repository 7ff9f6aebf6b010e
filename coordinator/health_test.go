package coordinator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/powersoftau/ceremony/coordinator"
	"github.com/powersoftau/ceremony/roundstate"
	"github.com/powersoftau/ceremony/store"
)

type fakeChecker struct{ status string }

func (f fakeChecker) Check() *coordinator.SubsystemHealth {
	return &coordinator.SubsystemHealth{Status: f.status}
}

func TestHealthCheckerRollsUpWorstStatus(t *testing.T) {
	hc := coordinator.NewHealthChecker()
	hc.Register("a", fakeChecker{status: coordinator.StatusHealthy})
	hc.Register("b", fakeChecker{status: coordinator.StatusDegraded})
	report := hc.CheckAll()
	require.Equal(t, coordinator.StatusDegraded, report.OverallStatus)
	require.Len(t, report.Subsystems, 2)

	hc.Register("c", fakeChecker{status: coordinator.StatusUnhealthy})
	report = hc.CheckAll()
	require.Equal(t, coordinator.StatusUnhealthy, report.OverallStatus)
	require.ElementsMatch(t, []string{"a", "b", "c"}, hc.Names())
}

func TestCoordinatorCheckReportsDegradedOnStaleLock(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Load(dir)
	require.NoError(t, err)
	cfg := smallConfig(t, "contributor-1", "verifier-1")
	cfg.LockTTL = time.Millisecond
	c, err := coordinator.New(cfg, st)
	require.NoError(t, err)

	contributor := roundstate.Participant{Kind: roundstate.ContributorKind, Address: cfg.Contributors[0]}
	_, _, err = c.JoinQueue(contributor)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	health := c.Check()
	require.Equal(t, coordinator.StatusDegraded, health.Status)
}

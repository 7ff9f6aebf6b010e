package coordinator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/powersoftau/ceremony/coordinator"
	"github.com/powersoftau/ceremony/log"
)

func TestReporterServiceSatisfiesService(t *testing.T) {
	var svc coordinator.Service = coordinator.NewReporterService(log.Default(), time.Hour)
	require.Equal(t, "metrics-reporter", svc.Name())
}

func TestReporterServiceStartStop(t *testing.T) {
	svc := coordinator.NewReporterService(log.Default(), 10*time.Millisecond)
	require.NoError(t, svc.Start())
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, svc.Stop())
}

func TestReporterServiceRegistersWithLifecycleManager(t *testing.T) {
	lm := coordinator.NewLifecycleManager()
	svc := coordinator.NewReporterService(log.Default(), time.Hour)
	require.NoError(t, lm.Register(svc, 2))
	require.NoError(t, lm.StartAll())
	require.Equal(t, coordinator.StateRunning, lm.State("metrics-reporter"))
	require.NoError(t, lm.StopAll())
}

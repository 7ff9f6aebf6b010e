package metrics

import (
	"sync"
	"testing"
	"time"
)

type fakeBackend struct {
	mu   sync.Mutex
	last map[string]float64
	n    int
}

func (f *fakeBackend) Report(m map[string]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = m
	f.n++
	return nil
}

func (f *fakeBackend) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

func TestMetricsReporterRecordAndSnapshot(t *testing.T) {
	r := NewMetricsReporter(time.Hour)
	r.RecordMetric("a", 1)
	r.RecordMetric("b", 2)
	r.RecordTimer("c", 5*time.Millisecond)

	snap := r.Snapshot()
	if snap["a"] != 1 || snap["b"] != 2 || snap["c"] != 5 {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
}

func TestMetricsReporterExportsToBackends(t *testing.T) {
	r := NewMetricsReporter(10 * time.Millisecond)
	backend := &fakeBackend{}
	r.RegisterBackend("fake", backend)
	r.RecordMetric("coordinator_locks_acquired_total", 4)

	r.Start()
	defer r.Stop()

	deadline := time.Now().Add(time.Second)
	for backend.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if backend.count() == 0 {
		t.Fatal("expected backend to receive at least one report")
	}
}

func TestMetricsReporterStartStopIdempotent(t *testing.T) {
	r := NewMetricsReporter(time.Hour)
	r.Start()
	r.Start() // no-op, must not deadlock or panic
	if !r.Running() {
		t.Fatal("expected reporter to be running")
	}
	r.Stop()
	r.Stop() // no-op
	if r.Running() {
		t.Fatal("expected reporter to be stopped")
	}
}

func TestMetricsReporterUnregisterBackend(t *testing.T) {
	r := NewMetricsReporter(time.Hour)
	backend := &fakeBackend{}
	r.RegisterBackend("fake", backend)
	r.UnregisterBackend("fake")
	r.RecordMetric("x", 1)
	r.reportOnce()
	if backend.count() != 0 {
		t.Fatal("unregistered backend should not receive reports")
	}
}

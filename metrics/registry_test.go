package metrics

import "testing"

func TestRegistryGetOrCreate(t *testing.T) {
	r := NewRegistry()

	c1 := r.Counter("locks_acquired")
	c2 := r.Counter("locks_acquired")
	if c1 != c2 {
		t.Fatal("Counter should return the same instance for the same name")
	}

	g1 := r.Gauge("round_height")
	g2 := r.Gauge("round_height")
	if g1 != g2 {
		t.Fatal("Gauge should return the same instance for the same name")
	}
}

func TestRegistrySnapshot(t *testing.T) {
	r := NewRegistry()
	r.Counter("contributions_total").Add(3)
	r.Gauge("round_height").Set(2)
	r.Histogram("chunk_latency_ms").Observe(10)

	snap := r.Snapshot()

	if v, ok := snap["contributions_total"].(int64); !ok || v != 3 {
		t.Fatalf("contributions_total = %v, want int64(3)", snap["contributions_total"])
	}
	if v, ok := snap["round_height"].(int64); !ok || v != 2 {
		t.Fatalf("round_height = %v, want int64(2)", snap["round_height"])
	}
	hist, ok := snap["chunk_latency_ms"].(map[string]interface{})
	if !ok {
		t.Fatalf("chunk_latency_ms should snapshot as a map, got %T", snap["chunk_latency_ms"])
	}
	if hist["count"].(int64) != 1 {
		t.Fatalf("histogram count = %v, want 1", hist["count"])
	}
}

func TestDefaultRegistryIsShared(t *testing.T) {
	a := DefaultRegistry.Counter("shared_counter_for_test")
	b := DefaultRegistry.Counter("shared_counter_for_test")
	if a != b {
		t.Fatal("DefaultRegistry.Counter should be stable across calls")
	}
}

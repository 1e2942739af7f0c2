package bench

import (
	"testing"
)

func TestRegistryEntries(t *testing.T) {
	r := Registry()
	entries := r.Entries()
	if len(entries) != 6 {
		t.Fatalf("resident set has %d entries, want 6", len(entries))
	}

	for i := 1; i < len(entries); i++ {
		if entries[i].ID <= entries[i-1].ID {
			t.Errorf("entries not in ascending id order: %d after %d", entries[i].ID, entries[i-1].ID)
		}
	}
	for _, e := range entries {
		if e.Name == "" {
			t.Errorf("benchmark %d has no name", e.ID)
		}
		if e.DefaultIterations == 0 {
			t.Errorf("benchmark %d (%s) has no default iteration count", e.ID, e.Name)
		}
	}
}

func TestBodiesRun(t *testing.T) {
	r := Registry()
	for _, e := range r.Entries() {
		d, ok := r.Lookup(e.ID)
		if !ok {
			t.Fatalf("entry %d not resident", e.ID)
		}
		// Bodies must be self-contained: no I/O, no panics.
		d.Fn()
		d.Fn()
	}
}

func TestCompareInputsDiverge(t *testing.T) {
	// The two compare benchmarks depend on inputs that differ only in
	// the final byte; if the fixtures drift the measurement loses its
	// meaning.
	if cmpA == cmpB {
		t.Fatal("compare fixtures are equal")
	}
	if string(cmpA[:31]) != string(cmpB[:31]) {
		t.Fatal("compare fixtures diverge before the final byte")
	}
}

// Package device implements the benchmark execution core that runs on
// the target: a dispatch loop that decodes commands from the host,
// executes resident benchmarks under a masked, cycle-counted discipline,
// and responds over the same stream.
package device

import (
	"fmt"
	"sort"

	"github.com/cyclebench/cyclebench/wire"
)

// Descriptor identifies one benchmarked operation. The operation body is
// opaque to the core; it is supplied at build time and immutable for the
// process lifetime.
type Descriptor struct {
	ID                uint32
	Name              string
	DefaultIterations uint32
	// Fn is the operation's entry point. It runs with interrupts masked
	// inside the timed region and must not touch the communication
	// channel.
	Fn func()
}

// Registry holds the benchmark descriptors resident in one build.
type Registry struct {
	byID  map[uint32]Descriptor
	order []uint32
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[uint32]Descriptor)}
}

// Register adds a descriptor. IDs are unique within a build; a duplicate
// or an incomplete descriptor is a build mistake and fails loudly.
func (r *Registry) Register(d Descriptor) error {
	if d.Fn == nil {
		return fmt.Errorf("device: benchmark %d (%s) has no entry point", d.ID, d.Name)
	}
	if d.Name == "" {
		return fmt.Errorf("device: benchmark %d has no name", d.ID)
	}
	if _, dup := r.byID[d.ID]; dup {
		return fmt.Errorf("device: duplicate benchmark id %d", d.ID)
	}

	r.byID[d.ID] = d
	r.order = append(r.order, d.ID)
	return nil
}

// MustRegister is Register for build-time descriptor tables.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor for id.
func (r *Registry) Lookup(id uint32) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Entries returns the resident set as wire entries, in ascending id order.
func (r *Registry) Entries() []wire.BenchmarkEntry {
	ids := make([]uint32, len(r.order))
	copy(ids, r.order)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	entries := make([]wire.BenchmarkEntry, 0, len(ids))
	for _, id := range ids {
		d := r.byID[id]
		entries = append(entries, wire.BenchmarkEntry{
			ID:                d.ID,
			Name:              d.Name,
			DefaultIterations: d.DefaultIterations,
		})
	}
	return entries
}

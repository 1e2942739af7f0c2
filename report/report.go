// Package report formats benchmark measurements into result tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cyclebench/cyclebench/wire"
)

// Record is one benchmark's published measurement.
type Record struct {
	ID         uint32   `json:"id"`
	Name       string   `json:"name"`
	Iterations uint32   `json:"iterations"`
	Total      uint64   `json:"total_cycles"`
	Mean       float64  `json:"mean_cycles"`
	Min        uint64   `json:"min_cycles"`
	Max        uint64   `json:"max_cycles"`
	Samples    []uint64 `json:"samples,omitempty"`
	// Err carries the device error for a failed measurement; the other
	// cycle fields are zero in that case.
	Err string `json:"error,omitempty"`
}

// FromResult builds a Record from a device measurement.
func FromResult(name string, r wire.BenchmarkResult) Record {
	rec := Record{
		ID:         r.ID,
		Name:       name,
		Iterations: r.Iterations,
		Total:      r.Cycles.Total,
		Min:        r.Cycles.Min,
		Max:        r.Cycles.Max,
		Samples:    r.Samples,
	}
	if r.Cycles.Count > 0 {
		rec.Mean = float64(r.Cycles.Total) / float64(r.Cycles.Count)
	}
	return rec
}

// FromError builds a Record for a benchmark whose measurement failed.
func FromError(id uint32, name string, iterations uint32, err error) Record {
	return Record{
		ID:         id,
		Name:       name,
		Iterations: iterations,
		Err:        err.Error(),
	}
}

// Generate writes a markdown comparison table for the given records.
func Generate(w io.Writer, records []Record) error {
	if len(records) == 0 {
		return fmt.Errorf("report: no results to report")
	}

	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| ID | Benchmark | Iterations | Total | Mean | Min | Max |")
	fmt.Fprintln(w, "|----|-----------|------------|-------|------|-----|-----|")

	for _, r := range records {
		if r.Err != "" {
			fmt.Fprintf(w, "| %d | %s | %d | failed: %s | | | |\n",
				r.ID, r.Name, r.Iterations, r.Err)
			continue
		}
		fmt.Fprintf(w, "| %d | %s | %d | %s | %.1f | %s | %s |\n",
			r.ID, r.Name, r.Iterations,
			formatCycles(r.Total), r.Mean,
			formatCycles(r.Min), formatCycles(r.Max),
		)
	}

	return nil
}

// GenerateJSON writes records as JSON to w.
func GenerateJSON(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func formatCycles(c uint64) string {
	switch {
	case c >= 1_000_000_000:
		return fmt.Sprintf("%.2fGcy", float64(c)/1e9)
	case c >= 1_000_000:
		return fmt.Sprintf("%.2fMcy", float64(c)/1e6)
	case c >= 10_000:
		return fmt.Sprintf("%.1fkcy", float64(c)/1e3)
	default:
		return fmt.Sprintf("%dcy", c)
	}
}

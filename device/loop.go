package device

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cyclebench/cyclebench/hal"
	"github.com/cyclebench/cyclebench/wire"
)

// Loop is the device dispatch loop: Idle -> Decoding -> Executing ->
// Responding -> Idle, forever. It is strictly single-threaded; a running
// benchmark is never preempted by protocol traffic.
type Loop struct {
	plat hal.Platform
	reg  *Registry
	log  *slog.Logger
}

// NewLoop builds a Loop over the linked platform and resident registry.
func NewLoop(plat hal.Platform, reg *Registry, logger *slog.Logger) *Loop {
	return &Loop{
		plat: plat,
		reg:  reg,
		log:  logger.With(slog.String("component", "device")),
	}
}

// Run blocks in the dispatch loop until the communication stream closes.
// Every recognized error path responds and returns to Idle; only a dead
// stream ends the loop.
func (l *Loop) Run() error {
	r := wire.NewReader(l.plat)

	for {
		// Idle: block for one complete framed command.
		frame, err := r.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			var fe *wire.FramingError
			if errors.As(err, &fe) {
				// Stream died mid-frame; nothing left to respond to.
				return nil
			}
			return fmt.Errorf("device: receive: %w", err)
		}

		resp := l.dispatch(frame)

		// Responding: encode and transmit, then back to Idle.
		out, err := wire.EncodeResponse(resp)
		if err != nil {
			return fmt.Errorf("device: encode response: %w", err)
		}
		if _, err := l.plat.Write(out); err != nil {
			return fmt.Errorf("device: transmit: %w", err)
		}
	}
}

// dispatch covers the Decoding and Executing states and always produces
// exactly one response. Malformed input is answered with an error and
// never executed.
func (l *Loop) dispatch(frame []byte) wire.Response {
	cmd, err := wire.DecodeCommand(frame)
	if err != nil {
		var ute *wire.UnknownTagError
		if errors.As(err, &ute) {
			l.log.Warn("unknown command tag", slog.String("tag", ute.Tag))
			return wire.Error{Code: wire.CodeUnknownTag, Detail: err.Error()}
		}
		l.log.Warn("malformed command", slog.String("error", err.Error()))
		return wire.Error{Code: wire.CodeFraming, Detail: err.Error()}
	}

	switch c := cmd.(type) {
	case wire.Ping:
		return wire.Ack{}
	case wire.ListBenchmarks:
		return wire.BenchmarkList{Benchmarks: l.reg.Entries()}
	case wire.RunBenchmark:
		return l.execute(c)
	default:
		return wire.Error{
			Code:   wire.CodeUnknownTag,
			Detail: fmt.Sprintf("command %T not executable here", cmd),
		}
	}
}

// execute performs one measured benchmark run. Each iteration is timed
// with interrupts masked and the counter read under the retry-on-wrap
// discipline, so the delta can never be negative through wraparound
// alone; a backwards counter is a counter-access fault, reported as this
// measurement's failure rather than a benchmark result.
func (l *Loop) execute(c wire.RunBenchmark) wire.Response {
	d, ok := l.reg.Lookup(c.ID)
	if !ok {
		return wire.Error{
			Code:   wire.CodeUnknownID,
			Detail: fmt.Sprintf("no benchmark with id %d", c.ID),
		}
	}

	iters := c.Iterations
	if iters == 0 {
		iters = d.DefaultIterations
	}

	agg := wire.CycleAggregate{}
	var samples []uint64
	if c.Capture {
		samples = make([]uint64, 0, iters)
	}

	for i := uint32(0); i < iters; i++ {
		restore := l.plat.MaskInterrupts()
		start := ReadCycles(l.plat)
		d.Fn()
		end := ReadCycles(l.plat)
		restore()

		if end < start {
			return wire.Error{
				Code: wire.CodeCounterFault,
				Detail: fmt.Sprintf(
					"cycle counter moved backwards: %d -> %d", start, end,
				),
			}
		}

		sample := end - start
		if agg.Count == 0 || sample < agg.Min {
			agg.Min = sample
		}
		if sample > agg.Max {
			agg.Max = sample
		}
		agg.Count++
		agg.Total += sample
		if c.Capture {
			samples = append(samples, sample)
		}
	}

	l.log.Info("benchmark complete",
		slog.String("name", d.Name),
		slog.Uint64("iterations", uint64(iters)),
		slog.Uint64("total_cycles", agg.Total),
	)

	return wire.BenchmarkResult{
		ID:         c.ID,
		Iterations: iters,
		Cycles:     agg,
		Samples:    samples,
	}
}

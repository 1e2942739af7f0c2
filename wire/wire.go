// Package wire defines the message vocabulary exchanged between the host
// and the benchmark suite, and its framing over a byte stream.
//
// The transport is an ordered byte stream with no message boundaries of
// its own, so every message is encoded as a single JSON object on one
// newline-terminated line. The "type" field carries the variant tag.
package wire

import "fmt"

// ErrorCode identifies a protocol-level failure reported by the device.
type ErrorCode string

const (
	// CodeFraming marks a command that could not be decoded as a frame.
	CodeFraming ErrorCode = "framing"
	// CodeUnknownTag marks a frame whose variant tag is not recognized.
	CodeUnknownTag ErrorCode = "unknown_tag"
	// CodeUnknownID marks a run request for a benchmark that is not resident.
	CodeUnknownID ErrorCode = "unknown_id"
	// CodeCounterFault marks a cycle counter read that produced an
	// impossible value.
	CodeCounterFault ErrorCode = "counter_fault"
)

// Command is a message sent from the host to the device. Exactly one
// Command is outstanding at a time; every Command produces one Response.
type Command interface {
	commandTag() string
}

// Ping requests an Ack. The host sends it on connect until the device
// answers, which flushes any boot output still in the stream.
type Ping struct{}

// ListBenchmarks requests the set of resident benchmark descriptors.
type ListBenchmarks struct{}

// RunBenchmark requests a measured run of one resident benchmark.
type RunBenchmark struct {
	// ID selects the benchmark descriptor.
	ID uint32 `json:"id"`
	// Iterations is the number of measured repetitions. Zero means the
	// descriptor's default.
	Iterations uint32 `json:"iterations"`
	// Capture requests the full per-iteration sample sequence in the
	// result, in addition to the aggregate.
	Capture bool `json:"capture,omitempty"`
}

// Raw is an opaque passthrough used in raw mode: its payload is written
// to the stream verbatim, with no protocol-level interpretation. It never
// appears as a decoded Command; the device sees whatever the payload was.
type Raw struct {
	Data string
}

func (Ping) commandTag() string           { return "ping" }
func (ListBenchmarks) commandTag() string { return "list" }
func (RunBenchmark) commandTag() string   { return "run" }
func (Raw) commandTag() string            { return "raw" }

// Response is a message sent from the device to the host.
type Response interface {
	responseTag() string
}

// Ack acknowledges a Ping.
type Ack struct{}

// BenchmarkEntry describes one resident benchmark.
type BenchmarkEntry struct {
	ID                uint32 `json:"id"`
	Name              string `json:"name"`
	DefaultIterations uint32 `json:"default_iterations"`
}

// BenchmarkList carries the resident descriptor set.
type BenchmarkList struct {
	Benchmarks []BenchmarkEntry `json:"benchmarks"`
}

// CycleAggregate summarizes the per-iteration cycle samples of one run.
// It is always reproducible from the full sample sequence: Count samples
// summing to Total, bounded by Min and Max.
type CycleAggregate struct {
	Count uint64 `json:"count"`
	Total uint64 `json:"total"`
	Min   uint64 `json:"min"`
	Max   uint64 `json:"max"`
}

// BenchmarkResult carries the measurement of one RunBenchmark.
type BenchmarkResult struct {
	ID         uint32         `json:"id"`
	Iterations uint32         `json:"iterations"`
	Cycles     CycleAggregate `json:"cycles"`
	// Samples holds every per-iteration cycle delta when the run was
	// requested with Capture set; nil otherwise.
	Samples []uint64 `json:"samples,omitempty"`
}

// Error reports a failed Command. The session continues afterwards.
type Error struct {
	Code   ErrorCode `json:"code"`
	Detail string    `json:"detail,omitempty"`
}

func (Ack) responseTag() string             { return "ack" }
func (BenchmarkList) responseTag() string   { return "list" }
func (BenchmarkResult) responseTag() string { return "result" }
func (Error) responseTag() string           { return "error" }

func (e Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("device error: %s", e.Code)
	}
	return fmt.Sprintf("device error: %s (%s)", e.Code, e.Detail)
}

// FramingError reports a line that could not be decoded as a message.
type FramingError struct {
	Line   string
	Reason string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("wire: malformed frame %q: %s", e.Line, e.Reason)
}

// UnknownTagError reports a well-formed frame with an unrecognized
// variant tag. It is distinct from FramingError so forward-compatible
// messages are detected rather than misread.
type UnknownTagError struct {
	Tag string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("wire: unknown message tag %q", e.Tag)
}

// Package hal defines the hardware capability set the device execution
// core runs against: byte-stream transmit/receive, monotonic cycle reads,
// and interrupt masking around timed regions.
//
// Exactly one implementation is linked into each backend binary; platform
// identity is fixed per build, so there is no runtime backend selection.
package hal

import "io"

// CycleCounter exposes the core cycle counter as the two 32-bit hardware
// words it is read from. Both words advance live; callers that need a
// coherent 64-bit value must apply the retry-on-wrap read discipline
// (see device.ReadCycles).
type CycleCounter interface {
	// CycleLow returns the low word of the cycle counter.
	CycleLow() uint32
	// CycleHigh returns the high word of the cycle counter.
	CycleHigh() uint32
}

// Platform is the full capability set of a target build. The embedded
// ReadWriter is the communication channel to the host: Read blocks until
// bytes arrive, Write transmits them in order.
type Platform interface {
	io.ReadWriter
	CycleCounter

	// MaskInterrupts disables interrupt and exception delivery and
	// returns the function that restores the previous state. Timed
	// regions run between the two calls.
	MaskInterrupts() (restore func())
}

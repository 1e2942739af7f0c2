package virt

import "time"

// Counter models the mcycle/mcycleh pair. The 64-bit count is derived
// from the monotonic clock scaled to the modeled core frequency, and
// each word is sampled live, so two reads can straddle a low-word
// rollover exactly as the hardware pair would. The functional emulator
// does not promise cycle accuracy; it promises a monotonic counter with
// the real register interface.
type Counter struct {
	hz    uint64
	epoch time.Time
}

// NewCounter returns a Counter running at hz modeled cycles per second.
func NewCounter(hz uint64) *Counter {
	return &Counter{hz: hz, epoch: time.Now()}
}

func (c *Counter) now() uint64 {
	ns := time.Since(c.epoch).Nanoseconds()
	// Split to keep precision for large uptimes at GHz-scale rates.
	sec := uint64(ns) / 1e9
	rem := uint64(ns) % 1e9
	return sec*c.hz + rem*c.hz/1e9
}

// Low returns the low counter word.
func (c *Counter) Low() uint32 { return uint32(c.now()) }

// High returns the high counter word.
func (c *Counter) High() uint32 { return uint32(c.now() >> 32) }

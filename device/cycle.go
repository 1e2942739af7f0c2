package device

import "github.com/cyclebench/cyclebench/hal"

// ReadCycles assembles a coherent 64-bit cycle count from the two live
// 32-bit counter words. The high word is read before and after the low
// word; if the two high reads differ, the low word straddled a rollover
// and the whole sequence is repeated until they agree.
//
// This is the rdcycleh discipline from the RISC-V unprivileged ISA
// (fig. 10.1), applied to the machine-mode mcycle/mcycleh pair.
func ReadCycles(c hal.CycleCounter) uint64 {
	for {
		hi := c.CycleHigh()
		lo := c.CycleLow()
		if c.CycleHigh() == hi {
			return uint64(hi)<<32 | uint64(lo)
		}
	}
}

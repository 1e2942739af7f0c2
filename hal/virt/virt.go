// Package virt is the hardware access layer backed by the functional
// emulator's peripheral model: a 16550-style UART register file bridged
// to a host stream, and a core cycle counter derived from the monotonic
// clock at a configured core frequency.
//
// It is linked only into the functional-emulator backend binary. The
// cycle-accurate simulator build runs real firmware inside the external
// chip simulator and never loads this package.
package virt

import "io"

// DefaultClockHz is the modeled core frequency when none is configured.
// It matches a plausible small RISC-V core rather than the host clock.
const DefaultClockHz = 100_000_000

// Platform implements hal.Platform over a host-side stream, normally
// the master end of the pty the emulator announces.
type Platform struct {
	uart *UART
	ctr  *Counter

	irqMasked bool
}

// New builds a Platform bridging the given stream at clockHz modeled
// core cycles per second. clockHz zero selects DefaultClockHz.
func New(stream io.ReadWriter, clockHz uint64) *Platform {
	if clockHz == 0 {
		clockHz = DefaultClockHz
	}
	return &Platform{
		uart: NewUART(stream),
		ctr:  NewCounter(clockHz),
	}
}

// Read receives bytes from the host through the UART model.
func (p *Platform) Read(b []byte) (int, error) { return p.uart.Read(b) }

// Write transmits bytes to the host through the UART model.
func (p *Platform) Write(b []byte) (int, error) { return p.uart.Write(b) }

// CycleLow returns the low counter word (the mcycle read).
func (p *Platform) CycleLow() uint32 { return p.ctr.Low() }

// CycleHigh returns the high counter word (the mcycleh read).
func (p *Platform) CycleHigh() uint32 { return p.ctr.High() }

// MaskInterrupts latches the masked state for the timed region. The virt
// model delivers no asynchronous interrupts, so the only observable
// effect is that the UART defers receive servicing until restore.
func (p *Platform) MaskInterrupts() func() {
	prev := p.irqMasked
	p.irqMasked = true
	p.uart.SetRxHold(true)

	return func() {
		p.irqMasked = prev
		p.uart.SetRxHold(prev)
	}
}

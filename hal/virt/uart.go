package virt

import (
	"fmt"
	"io"
	"runtime"
	"sync"
)

// 16550 register offsets modeled by the UART.
const (
	RegRBR = 0 // receive buffer (read)
	RegTHR = 0 // transmit holding (write)
	RegLSR = 5 // line status
)

// LSR bits.
const (
	LSRDataReady = 1 << 0
	LSRTHREmpty  = 1 << 5
)

// UART models the subset of a 16550 the suite firmware touches: the
// transmit holding register forwards into the backing stream, the
// receive buffer is filled from it. The register surface is kept so the
// device side reads and writes the peripheral the way the firmware
// would, instead of the stream directly.
type UART struct {
	backing io.ReadWriter

	mu     sync.Mutex
	rxBuf  []byte
	rxHold bool
	rxErr  error
}

// NewUART wraps backing as the UART's line.
func NewUART(backing io.ReadWriter) *UART {
	return &UART{backing: backing}
}

// ReadReg reads a register. RBR consumes one received byte; reading it
// with no data ready returns 0, as the hardware would.
func (u *UART) ReadReg(reg int) (uint8, error) {
	switch reg {
	case RegRBR:
		u.mu.Lock()
		defer u.mu.Unlock()
		if len(u.rxBuf) == 0 {
			return 0, nil
		}
		b := u.rxBuf[0]
		u.rxBuf = u.rxBuf[1:]
		return b, nil
	case RegLSR:
		u.mu.Lock()
		defer u.mu.Unlock()
		lsr := uint8(LSRTHREmpty)
		if len(u.rxBuf) > 0 {
			lsr |= LSRDataReady
		}
		return lsr, nil
	default:
		return 0, fmt.Errorf("virt: unmodeled uart register %d", reg)
	}
}

// WriteReg writes a register. THR transmits the byte immediately; the
// modeled transmitter never backs up, so THRE stays set.
func (u *UART) WriteReg(reg int, val uint8) error {
	if reg != RegTHR {
		return fmt.Errorf("virt: unmodeled uart register %d", reg)
	}
	_, err := u.backing.Write([]byte{val})
	return err
}

// SetRxHold pauses (true) or resumes (false) pulling bytes off the
// backing stream, mirroring a masked receive interrupt. Already-buffered
// bytes remain readable.
func (u *UART) SetRxHold(hold bool) {
	u.mu.Lock()
	u.rxHold = hold
	u.mu.Unlock()
}

// Read blocks until at least one received byte is available. It pumps
// the backing stream on the caller's thread; the device core is single
// threaded and only reads between commands.
func (u *UART) Read(b []byte) (int, error) {
	for {
		u.mu.Lock()
		if u.rxErr != nil && len(u.rxBuf) == 0 {
			err := u.rxErr
			u.mu.Unlock()
			return 0, err
		}
		if len(u.rxBuf) > 0 {
			n := copy(b, u.rxBuf)
			u.rxBuf = u.rxBuf[n:]
			u.mu.Unlock()
			return n, nil
		}
		hold := u.rxHold
		u.mu.Unlock()

		if hold {
			// Receive servicing deferred while masked; nothing can
			// arrive for the core until restore.
			runtime.Gosched()
			continue
		}

		tmp := make([]byte, 256)
		n, err := u.backing.Read(tmp)
		u.mu.Lock()
		u.rxBuf = append(u.rxBuf, tmp[:n]...)
		if err != nil {
			u.rxErr = err
		}
		u.mu.Unlock()
	}
}

// Write transmits every byte through the THR path.
func (u *UART) Write(b []byte) (int, error) {
	for i, v := range b {
		if err := u.WriteReg(RegTHR, v); err != nil {
			return i, err
		}
	}
	return len(b), nil
}

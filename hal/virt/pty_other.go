//go:build !linux

package virt

import (
	"errors"
	"os"
)

// OpenPTY allocates a pseudo-terminal pair for the emulator's UART line.
// Only the linux backend is supported; the cycle-accurate simulator path
// does not go through this package at all.
func OpenPTY() (master *os.File, slavePath string, err error) {
	return nil, "", errors.New("virt: pty allocation is only supported on linux")
}

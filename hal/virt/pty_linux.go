//go:build linux

package virt

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// OpenPTY allocates a pseudo-terminal pair for the emulator's UART line.
// The master end becomes the UART backing stream; the returned slave
// path is the endpoint the backend announces for the host to open.
func OpenPTY() (master *os.File, slavePath string, err error) {
	master, err = os.OpenFile("/dev/ptmx", os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, "", fmt.Errorf("virt: open ptmx: %w", err)
	}

	fd := int(master.Fd())

	n, err := unix.IoctlGetInt(fd, unix.TIOCGPTN)
	if err != nil {
		master.Close()
		return nil, "", fmt.Errorf("virt: query pty number: %w", err)
	}

	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, 0); err != nil {
		master.Close()
		return nil, "", fmt.Errorf("virt: unlock pty: %w", err)
	}

	// Raw line discipline on the pair; the protocol is a byte stream
	// and echo or CRNL mangling would corrupt frames sent before the
	// host configures its side.
	tio, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		master.Close()
		return nil, "", fmt.Errorf("virt: get termios: %w", err)
	}
	tio.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	tio.Oflag &^= unix.OPOST
	tio.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	tio.Cflag &^= unix.CSIZE | unix.PARENB
	tio.Cflag |= unix.CS8
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, tio); err != nil {
		master.Close()
		return nil, "", fmt.Errorf("virt: set termios: %w", err)
	}

	return master, fmt.Sprintf("/dev/pts/%d", n), nil
}

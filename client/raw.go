package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// RunRaw drives a raw-mode exchange: every line of in is forwarded to
// the device verbatim as a command, and every response line the device
// emits is written to out verbatim, one per line, with no protocol-level
// interpretation. Input is forwarded in order before responses are
// drained, and draining stops once the device stays quiet for the
// session timeout, since raw mode has no end-of-session message.
func RunRaw(s *Session, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if err := s.SendRaw(sc.Text()); err != nil {
			return fmt.Errorf("client: raw send: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("client: raw input: %w", err)
	}

	for {
		line, err := s.ReadRaw()
		if err != nil {
			if errors.Is(err, ErrTimeout) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("client: raw output: %w", err)
		}
	}
}

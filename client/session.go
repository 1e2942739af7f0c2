// Package client implements the host side of a benchmarking session:
// synchronous request/response commands against a device endpoint, and a
// raw passthrough mode for manual probing.
package client

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/cyclebench/cyclebench/wire"
)

// ErrTimeout reports that no response arrived within the configured
// bound. The connection is not assumed dead, but the in-flight command
// is lost; callers must not retry without deciding that re-execution of
// a non-idempotent benchmark is acceptable.
var ErrTimeout = errors.New("client: response deadline exceeded")

// DefaultTimeout bounds each response wait unless configured otherwise.
// Verilator runs are slow; this errs long rather than flaky.
const DefaultTimeout = 60 * time.Second

// Conn is the transport a Session runs over: an ordered reliable byte
// stream with read deadlines.
type Conn interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
}

// Config adjusts session behavior.
type Config struct {
	// Timeout bounds each wait for a response. Zero means DefaultTimeout.
	Timeout time.Duration
	// Logger receives session traffic at debug level. Nil discards.
	Logger *slog.Logger
}

// Session is a synchronous host connection to a device. At most one
// command is outstanding at a time; concurrent callers are serialized,
// never interleaved.
type Session struct {
	mu      sync.Mutex
	conn    Conn
	r       *wire.Reader
	timeout time.Duration
	log     *slog.Logger

	closeOnce sync.Once
	closeErr  error
	restore   func() error
}

// New establishes a session over an open connection. It performs the
// connect handshake: pings until the device acknowledges, which drains
// any boot output still queued in the stream.
func New(conn Conn, cfg Config) (*Session, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Session{
		conn:    conn,
		r:       wire.NewReader(conn),
		timeout: timeout,
		log:     logger.With(slog.String("component", "session")),
	}

	if err := s.handshake(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open connects to the device endpoint at path, configures the line for
// raw byte-stream traffic, and establishes a session over it.
func Open(path string, cfg Config) (*Session, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("client: open endpoint %s: %w", path, err)
	}

	state, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("client: raw mode on %s: %w", path, err)
	}

	s, err := New(f, cfg)
	if err != nil {
		_ = term.Restore(int(f.Fd()), state)
		f.Close()
		return nil, err
	}

	fd := int(f.Fd())
	s.restore = func() error { return term.Restore(fd, state) }
	return s, nil
}

// Close restores the line state and closes the connection.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.restore != nil {
			s.closeErr = s.restore()
		}
		if err := s.conn.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}

func (s *Session) handshake() error {
	deadline := time.Now().Add(s.timeout)
	if err := s.send(wire.Ping{}); err != nil {
		return err
	}

	for {
		resp, err := s.readResponse(deadline)
		if err != nil {
			return fmt.Errorf("client: handshake: %w", err)
		}
		if _, ok := resp.(wire.Ack); ok {
			s.log.Debug("handshake complete")
			return nil
		}
		// Stale response from an abandoned prior session; keep draining.
	}
}

// List retrieves the resident benchmark descriptors.
func (s *Session) List() ([]wire.BenchmarkEntry, error) {
	resp, err := s.roundTrip(wire.ListBenchmarks{})
	if err != nil {
		return nil, err
	}

	switch r := resp.(type) {
	case wire.BenchmarkList:
		return r.Benchmarks, nil
	case wire.Error:
		return nil, r
	default:
		return nil, fmt.Errorf("client: unexpected response %T to list", resp)
	}
}

// Run executes one benchmark on the device and returns its measurement.
// iterations zero selects the descriptor's default; capture requests the
// full per-iteration sample sequence.
func (s *Session) Run(id, iterations uint32, capture bool) (wire.BenchmarkResult, error) {
	resp, err := s.roundTrip(wire.RunBenchmark{
		ID:         id,
		Iterations: iterations,
		Capture:    capture,
	})
	if err != nil {
		return wire.BenchmarkResult{}, err
	}

	switch r := resp.(type) {
	case wire.BenchmarkResult:
		return r, nil
	case wire.Error:
		return wire.BenchmarkResult{}, r
	default:
		return wire.BenchmarkResult{}, fmt.Errorf(
			"client: unexpected response %T to run", resp,
		)
	}
}

// SendRaw writes one line to the device verbatim, with no protocol-level
// validation. Pair it with ReadRaw as needed; raw mode deliberately does
// not enforce request/response pairing.
func (s *Session) SendRaw(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(wire.Raw{Data: line})
}

// ReadRaw returns the next response line verbatim, unparsed. It fails
// with ErrTimeout when the device stays quiet for the configured bound.
func (s *Session) ReadRaw() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame, err := s.readFrame(time.Now().Add(s.timeout))
	if err != nil {
		return "", err
	}
	return string(frame), nil
}

// roundTrip issues one command and blocks for exactly one response or
// the timeout. The mutex is what guarantees a session never has more
// than one command outstanding: a second caller queues here until the
// first pair completes.
func (s *Session) roundTrip(cmd wire.Command) (wire.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.send(cmd); err != nil {
		return nil, err
	}
	return s.readResponse(time.Now().Add(s.timeout))
}

func (s *Session) send(cmd wire.Command) error {
	frame, err := wire.EncodeCommand(cmd)
	if err != nil {
		return err
	}

	s.log.Debug("send", slog.String("frame", string(frame)))
	if _, err := s.conn.Write(frame); err != nil {
		return fmt.Errorf("client: send: %w", err)
	}
	return nil
}

// readResponse returns the next decodable response before deadline.
// Undecodable lines (boot banners, stray diagnostics) are logged and
// skipped; the deadline is absolute across skips.
func (s *Session) readResponse(deadline time.Time) (wire.Response, error) {
	for {
		frame, err := s.readFrame(deadline)
		if err != nil {
			return nil, err
		}

		resp, err := wire.DecodeResponse(frame)
		if err != nil {
			s.log.Warn("skipping undecodable line",
				slog.String("line", string(frame)),
				slog.String("error", err.Error()),
			)
			continue
		}

		s.log.Debug("recv", slog.String("frame", string(frame)))
		return resp, nil
	}
}

func (s *Session) readFrame(deadline time.Time) ([]byte, error) {
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("client: set deadline: %w", err)
	}

	frame, err := s.r.ReadFrame()
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("client: receive: %w", err)
	}
	return frame, nil
}

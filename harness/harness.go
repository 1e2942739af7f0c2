// Package harness launches a benchmark backend as a child process,
// discovers the dynamically assigned communication endpoint from its
// diagnostic output, runs a caller-supplied workload against it, and
// guarantees the backend is torn down on every exit path.
package harness

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// ErrStartup reports a backend that exited or closed its diagnostic
// stream before announcing an endpoint. It is fatal to the harness
// invocation; no partial session is attempted.
var ErrStartup = errors.New("harness: backend never announced an endpoint")

// Backend abstracts one way of hosting the device: it builds the child
// process command and recognizes the endpoint announcement in the
// child's diagnostic output. Keeping the announcement format behind this
// interface confines each backend's exact message to one adapter.
type Backend interface {
	// Name identifies the backend kind for logs.
	Name() string
	// Command builds the child process invocation. The harness owns
	// stdout/stderr wiring and process-group placement.
	Command() (*exec.Cmd, error)
	// Endpoint inspects one diagnostic line and returns the endpoint
	// it announces, if any.
	Endpoint(line string) (string, bool)
}

// Config adjusts harness behavior.
type Config struct {
	// StartupTimeout bounds the wait for the endpoint announcement.
	// Zero means 2 minutes; a Verilator model can take that long to
	// reach the UART.
	StartupTimeout time.Duration
	// GracePeriod is how long a graceful shutdown request may take
	// before termination is forced. Zero means 5 seconds.
	GracePeriod time.Duration
	// Logger receives harness progress. Required.
	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.StartupTimeout == 0 {
		c.StartupTimeout = 2 * time.Minute
	}
	if c.GracePeriod == 0 {
		c.GracePeriod = 5 * time.Second
	}
}

// Workload runs the host side of a session against a discovered
// endpoint.
type Workload func(ctx context.Context, endpoint string) error

// Run spawns the backend, waits for its endpoint announcement, invokes
// the workload, and terminates the backend before returning, whatever
// the workload did. A canceled ctx aborts the wait and the workload but
// never skips teardown.
func Run(ctx context.Context, b Backend, cfg Config, workload Workload) error {
	cfg.setDefaults()
	log := cfg.Logger.With(slog.String("backend", b.Name()))

	cmd, err := b.Command()
	if err != nil {
		return fmt.Errorf("harness: build %s command: %w", b.Name(), err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("harness: stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	// Own process group, so teardown reaches the whole backend tree.
	setProcessGroup(cmd)

	log.Info("starting backend", slog.String("binary", cmd.Path))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("harness: start %s: %w", b.Name(), err)
	}

	proc := &process{cmd: cmd, log: log, grace: cfg.GracePeriod}
	defer proc.terminate()

	// Scan the diagnostic stream lazily. The goroutine keeps draining
	// after the match so the backend never blocks on a full pipe; later
	// lines go to the log.
	endpoints := make(chan string, 1)
	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		matched := false
		sc := bufio.NewScanner(stdout)
		for sc.Scan() {
			line := sc.Text()
			log.Debug("backend output", slog.String("line", line))
			if !matched {
				if ep, ok := b.Endpoint(line); ok {
					matched = true
					endpoints <- ep
				}
			}
		}
	}()

	var endpoint string
	select {
	case endpoint = <-endpoints:
	case <-scanDone:
		// Diagnostic stream closed without an announcement.
		return fmt.Errorf("%w (backend %s)", ErrStartup, b.Name())
	case <-time.After(cfg.StartupTimeout):
		return fmt.Errorf("%w (backend %s: no announcement within %s)",
			ErrStartup, b.Name(), cfg.StartupTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	log.Info("endpoint discovered", slog.String("endpoint", endpoint))

	if err := workload(ctx, endpoint); err != nil {
		return fmt.Errorf("harness: workload: %w", err)
	}
	return nil
}

// process owns termination of the spawned backend.
type process struct {
	cmd   *exec.Cmd
	log   *slog.Logger
	grace time.Duration
}

// terminate requests graceful shutdown of the backend's process group
// and escalates to forced termination after the grace period. It always
// reaps the child before returning.
func (p *process) terminate() {
	if p.cmd.Process == nil {
		return
	}

	p.log.Info("stopping backend")
	if err := interruptGroup(p.cmd); err != nil {
		p.log.Warn("graceful shutdown request failed",
			slog.String("error", err.Error()))
	}

	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(p.grace):
		p.log.Warn("backend ignored shutdown request, killing")
		if err := killGroup(p.cmd); err != nil {
			p.log.Warn("kill failed", slog.String("error", err.Error()))
		}
		<-done
	}
}

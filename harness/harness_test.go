//go:build unix

package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// scriptBackend runs an inline shell script as the backend child. The
// script reports its own pid so tests can assert it was torn down.
type scriptBackend struct {
	script string

	mu  sync.Mutex
	pid int
}

var (
	pidLine      = regexp.MustCompile(`^pid (\d+)$`)
	redirectLine = regexp.MustCompile(`redirected to (\S+)`)
)

func (b *scriptBackend) Name() string { return "script" }

func (b *scriptBackend) Command() (*exec.Cmd, error) {
	return exec.Command("/bin/sh", "-c", "echo pid $$\n"+b.script), nil
}

func (b *scriptBackend) Endpoint(line string) (string, bool) {
	if m := pidLine.FindStringSubmatch(line); m != nil {
		pid, _ := strconv.Atoi(m[1])
		b.mu.Lock()
		b.pid = pid
		b.mu.Unlock()
		return "", false
	}
	m := redirectLine.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// assertDead fails the test if the backend process still exists.
func (b *scriptBackend) assertDead(t *testing.T) {
	t.Helper()

	b.mu.Lock()
	pid := b.pid
	b.mu.Unlock()
	if pid == 0 {
		t.Fatal("backend never reported its pid")
	}

	// The child is reaped by the harness before Run returns, so a
	// surviving pid means teardown was skipped.
	err := unix.Kill(pid, 0)
	if err == nil {
		_ = unix.Kill(pid, unix.SIGKILL)
		t.Errorf("backend pid %d still running after Run returned", pid)
	}
}

func harnessConfig() Config {
	return Config{
		StartupTimeout: 10 * time.Second,
		GracePeriod:    2 * time.Second,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRunDiscoversEndpoint(t *testing.T) {
	b := &scriptBackend{script: `
echo booting
sleep 0.2
echo 'serial redirected to /tmp/ptyX'
sleep 30
`}

	var got string
	err := Run(context.Background(), b, harnessConfig(),
		func(_ context.Context, endpoint string) error {
			got = endpoint
			return nil
		})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got != "/tmp/ptyX" {
		t.Errorf("endpoint = %q, want /tmp/ptyX", got)
	}
	b.assertDead(t)
}

func TestRunTearsDownOnWorkloadError(t *testing.T) {
	b := &scriptBackend{script: `
echo 'serial redirected to /tmp/ptyY'
sleep 30
`}

	wantErr := fmt.Errorf("session blew up")
	err := Run(context.Background(), b, harnessConfig(),
		func(context.Context, string) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped workload error", err)
	}
	b.assertDead(t)
}

func TestRunStartupFailureOnEarlyExit(t *testing.T) {
	b := &scriptBackend{script: `
echo 'no endpoint here'
exit 1
`}

	called := false
	err := Run(context.Background(), b, harnessConfig(),
		func(context.Context, string) error {
			called = true
			return nil
		})
	if !errors.Is(err, ErrStartup) {
		t.Fatalf("err = %v, want ErrStartup", err)
	}
	if called {
		t.Error("workload ran without an endpoint")
	}
}

func TestRunStartupFailureOnSilence(t *testing.T) {
	b := &scriptBackend{script: `sleep 30`}

	cfg := harnessConfig()
	cfg.StartupTimeout = 300 * time.Millisecond

	start := time.Now()
	err := Run(context.Background(), b, cfg,
		func(context.Context, string) error { return nil })
	if !errors.Is(err, ErrStartup) {
		t.Fatalf("err = %v, want ErrStartup", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("startup failure took %v", elapsed)
	}
	b.assertDead(t)
}

func TestRunTearsDownOnCancel(t *testing.T) {
	b := &scriptBackend{script: `
echo 'serial redirected to /tmp/ptyZ'
sleep 30
`}

	ctx, cancel := context.WithCancel(context.Background())
	err := Run(ctx, b, harnessConfig(),
		func(ctx context.Context, _ string) error {
			cancel()
			<-ctx.Done()
			return ctx.Err()
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	b.assertDead(t)
}

// A backend that ignores the graceful shutdown request must still be
// gone once the grace period escalates to a kill.
func TestRunEscalatesToKill(t *testing.T) {
	b := &scriptBackend{script: `
trap '' INT
echo 'serial redirected to /tmp/ptyK'
while :; do sleep 1; done
`}

	cfg := harnessConfig()
	cfg.GracePeriod = 200 * time.Millisecond

	err := Run(context.Background(), b, cfg,
		func(context.Context, string) error { return nil })
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	b.assertDead(t)
}

// Package main provides the CLI entry point for cyclebench, a
// cycle-accurate benchmarking driver for security-sensitive device
// operations.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cyclebench/cyclebench/config"
	"github.com/cyclebench/cyclebench/harness"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "cyclebench",
		Short: "Cycle-accurate device benchmarking driver",
		Long: `Cyclebench measures the cycle cost of security-sensitive device
operations. It spawns a device backend (the built-in functional emulator
or a Verilator chip simulation), drives the resident benchmarks over the
backend's serial endpoint, and reports per-operation cycle counts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newListCmd(logger))
	root.AddCommand(newRawCmd(logger))
	root.AddCommand(newEmulateCmd(logger))

	return root
}

// backendFlags is the backend selection shared by run, list, and raw.
type backendFlags struct {
	configPath string
	backend    string
}

func (f *backendFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "",
		"Path to a YAML session configuration file")
	flags.StringVar(&f.backend, "backend", "",
		"Backend kind: "+strings.Join(harness.KnownBackends(), ", "))
}

// load resolves the session configuration, with the --backend flag
// overriding the file.
func (f *backendFlags) load() (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		cfg, err = config.Load(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
	}

	if f.backend != "" {
		cfg.Backend = f.backend
	}
	switch cfg.Backend {
	case harness.KindVirt, harness.KindVerilator:
	default:
		return config.Config{}, fmt.Errorf("unknown backend %q (want %s)",
			cfg.Backend, strings.Join(harness.KnownBackends(), " or "))
	}
	return cfg, nil
}

// buildBackend constructs the harness backend the configuration names.
func buildBackend(cfg config.Config) (harness.Backend, error) {
	switch cfg.Backend {
	case harness.KindVirt:
		return harness.VirtBackend{ClockHz: cfg.ClockHz}, nil
	case harness.KindVerilator:
		b, err := harness.ResolveVerilator(harness.VerilatorBackend{
			Simulator: cfg.Verilator.Simulator,
			BootROM:   cfg.Verilator.BootROM,
			OTPImage:  cfg.Verilator.OTPImage,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func harnessConfig(cfg config.Config, logger *slog.Logger) harness.Config {
	return harness.Config{
		StartupTimeout: cfg.StartupTimeout.Std(),
		GracePeriod:    cfg.GracePeriod.Std(),
		Logger:         logger,
	}
}

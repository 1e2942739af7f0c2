package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyclebench/cyclebench/client"
	"github.com/cyclebench/cyclebench/config"
	"github.com/cyclebench/cyclebench/harness"
	"github.com/cyclebench/cyclebench/report"
	"github.com/cyclebench/cyclebench/wire"
)

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		backend    backendFlags
		ids        []uint
		iterations uint32
		capture    bool
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run device benchmarks and report cycle counts",
		Long: `Spawn the configured backend, run the selected benchmarks on the
device, and print a cycle-count table. With no --ids, every resident
benchmark runs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := backend.load()
			if err != nil {
				return err
			}
			return runBenchmarks(cmd.Context(), logger, cfg, runOptions{
				ids:        ids,
				iterations: iterations,
				capture:    capture,
				outputJSON: outputJSON,
			})
		},
	}

	backend.register(cmd)
	flags := cmd.Flags()
	flags.UintSliceVar(&ids, "ids", nil,
		"Benchmark ids to run (default: all resident benchmarks)")
	flags.Uint32Var(&iterations, "iterations", 0,
		"Iterations per benchmark (0 = each benchmark's default)")
	flags.BoolVar(&capture, "capture", false,
		"Capture the full per-iteration cycle samples")
	flags.BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of a table")

	return cmd
}

type runOptions struct {
	ids        []uint
	iterations uint32
	capture    bool
	outputJSON bool
}

func runBenchmarks(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.Config,
	opts runOptions,
) error {
	b, err := buildBackend(cfg)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting benchmark session",
		slog.String("backend", b.Name()),
		slog.Any("ids", opts.ids),
		slog.Uint64("iterations", uint64(opts.iterations)),
	)

	var records []report.Record
	workload := func(ctx context.Context, endpoint string) error {
		session, err := client.Open(endpoint, client.Config{
			Timeout: cfg.ResponseTimeout.Std(),
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		defer session.Close()

		entries, err := session.List()
		if err != nil {
			return fmt.Errorf("list benchmarks: %w", err)
		}

		selected, err := selectEntries(entries, opts.ids)
		if err != nil {
			return err
		}

		for _, e := range selected {
			logger.InfoContext(ctx, "running benchmark",
				slog.Uint64("id", uint64(e.ID)),
				slog.String("name", e.Name),
			)

			result, runErr := session.Run(e.ID, opts.iterations, opts.capture)
			if runErr != nil {
				var devErr wire.Error
				if !errors.As(runErr, &devErr) {
					return fmt.Errorf("run %s: %w", e.Name, runErr)
				}
				// A device-reported failure fails the row, not the
				// session; the loop has already recovered.
				records = append(records,
					report.FromError(e.ID, e.Name, opts.iterations, devErr))
				continue
			}

			records = append(records, report.FromResult(e.Name, result))
		}
		return nil
	}

	err = harness.Run(ctx, b, harnessConfig(cfg, logger), workload)
	if err != nil {
		return err
	}

	if opts.outputJSON {
		if err := report.GenerateJSON(os.Stdout, records); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	} else {
		if err := report.Generate(os.Stdout, records); err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
	}

	logger.InfoContext(ctx, "benchmark session complete",
		slog.Int("benchmarks", len(records)),
	)
	return nil
}

// selectEntries filters the resident set down to the requested ids,
// preserving device order. An id the device does not carry is an error.
func selectEntries(entries []wire.BenchmarkEntry, ids []uint) ([]wire.BenchmarkEntry, error) {
	if len(ids) == 0 {
		return entries, nil
	}

	resident := make(map[uint32]wire.BenchmarkEntry, len(entries))
	for _, e := range entries {
		resident[e.ID] = e
	}

	selected := make([]wire.BenchmarkEntry, 0, len(ids))
	for _, id := range ids {
		e, ok := resident[uint32(id)]
		if !ok {
			return nil, fmt.Errorf("benchmark id %d is not resident on the device", id)
		}
		selected = append(selected, e)
	}
	return selected, nil
}

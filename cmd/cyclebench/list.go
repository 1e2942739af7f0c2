package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cyclebench/cyclebench/client"
	"github.com/cyclebench/cyclebench/config"
	"github.com/cyclebench/cyclebench/harness"
	"github.com/cyclebench/cyclebench/wire"
)

func newListCmd(logger *slog.Logger) *cobra.Command {
	var (
		backend    backendFlags
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the benchmarks resident on the device",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := backend.load()
			if err != nil {
				return err
			}
			return listBenchmarks(cmd.Context(), logger, cfg, outputJSON)
		},
	}

	backend.register(cmd)
	cmd.Flags().BoolVar(&outputJSON, "json", false,
		"Output the list as JSON instead of a table")

	return cmd
}

func listBenchmarks(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.Config,
	outputJSON bool,
) error {
	b, err := buildBackend(cfg)
	if err != nil {
		return err
	}

	var entries []wire.BenchmarkEntry
	workload := func(ctx context.Context, endpoint string) error {
		session, err := client.Open(endpoint, client.Config{
			Timeout: cfg.ResponseTimeout.Std(),
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		defer session.Close()

		entries, err = session.List()
		if err != nil {
			return fmt.Errorf("list benchmarks: %w", err)
		}
		return nil
	}

	if err := harness.Run(ctx, b, harnessConfig(cfg, logger), workload); err != nil {
		return err
	}

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDEFAULT ITERATIONS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", e.ID, e.Name, e.DefaultIterations)
	}
	return tw.Flush()
}

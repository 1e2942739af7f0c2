package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyclebench/cyclebench/client"
	"github.com/cyclebench/cyclebench/config"
	"github.com/cyclebench/cyclebench/harness"
	"github.com/cyclebench/cyclebench/rawfile"
)

func newRawCmd(logger *slog.Logger) *cobra.Command {
	var (
		backend backendFlags
		tty     string
		quiet   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "raw <file>...",
		Short: "Forward raw command files to the device",
		Long: `Send each input file's lines to the device verbatim and record
every response line in a sibling .result file. Lines starting with '#'
and blank lines are skipped; no request/response pairing is enforced. A
file's session ends once the device has stayed quiet for the --quiet
interval.

With --tty, commands go to an already-running device at the given serial
endpoint instead of a freshly spawned backend.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := backend.load()
			if err != nil {
				return err
			}
			return runRawFiles(cmd.Context(), logger, cfg, args, tty, quiet)
		},
	}

	backend.register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&tty, "tty", "",
		"Serial endpoint of an already-running device (skips backend spawn)")
	flags.DurationVar(&quiet, "quiet", 2*time.Second,
		"Silence interval that ends each file's response drain")

	return cmd
}

func runRawFiles(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.Config,
	paths []string,
	tty string,
	quiet time.Duration,
) error {
	process := func(ctx context.Context, endpoint string) error {
		session, err := client.Open(endpoint, client.Config{
			Timeout: quiet,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		defer session.Close()

		for _, path := range paths {
			if err := processRawFile(ctx, logger, session, path); err != nil {
				return err
			}
		}
		return nil
	}

	if tty != "" {
		return process(ctx, tty)
	}

	b, err := buildBackend(cfg)
	if err != nil {
		return err
	}
	return harness.Run(ctx, b, harnessConfig(cfg, logger), process)
}

func processRawFile(
	ctx context.Context,
	logger *slog.Logger,
	session *client.Session,
	path string,
) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open raw file: %w", err)
	}

	entries, err := rawfile.Read(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	resultPath := rawfile.ResultPath(path)
	out, err := os.Create(resultPath)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}

	logger.InfoContext(ctx, "forwarding raw file",
		slog.String("input", path),
		slog.String("output", resultPath),
		slog.Int("commands", len(entries)),
	)

	runErr := client.RunRaw(session, rawfile.Source(entries), out)
	if closeErr := out.Close(); runErr == nil {
		runErr = closeErr
	}
	if runErr != nil {
		return fmt.Errorf("raw session %s: %w", path, runErr)
	}
	return nil
}

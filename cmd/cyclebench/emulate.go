package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cyclebench/cyclebench/bench"
	"github.com/cyclebench/cyclebench/device"
	"github.com/cyclebench/cyclebench/hal/virt"
)

func newEmulateCmd(logger *slog.Logger) *cobra.Command {
	var clockHz uint64

	cmd := &cobra.Command{
		Use:    "emulate",
		Short:  "Host the device core behind a pseudo-terminal",
		Hidden: true,
		Long: `Run the benchmark device core in-process: allocate a pty, announce
its slave path on stdout in the same form the Verilator uartdpi prints,
and serve the command loop on the master side until the host hangs up.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return emulate(logger, clockHz)
		},
	}

	cmd.Flags().Uint64Var(&clockHz, "clock-hz", 0,
		"Modeled core clock frequency (0 = emulator default)")

	return cmd
}

func emulate(logger *slog.Logger, clockHz uint64) error {
	master, slavePath, err := virt.OpenPTY()
	if err != nil {
		return fmt.Errorf("allocate pty: %w", err)
	}
	defer master.Close()

	// The harness on the other side scans for exactly this line.
	fmt.Printf("UART: Created %s for uart0.\n", slavePath)
	os.Stdout.Sync()

	log := logger.With(slog.String("component", "emulator"))
	log.Info("device core online",
		slog.String("endpoint", slavePath),
		slog.Uint64("clock_hz", clockHz),
	)

	plat := virt.New(master, clockHz)
	loop := device.NewLoop(plat, bench.Registry(), log)
	if err := loop.Run(); err != nil {
		return fmt.Errorf("device loop: %w", err)
	}

	log.Info("host hung up, shutting down")
	return nil
}

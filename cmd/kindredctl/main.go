// Command kindredctl runs the adaptation core's building blocks from the
// command line: correction detection, offline evolution and the used-response
// sweep.
package main

import (
	"fmt"
	"os"

	"github.com/Harshitk-cp/kindred/internal/buildconfig"
	"github.com/Harshitk-cp/kindred/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kindredctl",
		Short:         "Inspect and operate the persona adaptation core",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Load()
		},
	}
	root.AddCommand(newDetectCmd(), newEvolveCmd(), newSweepCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), buildconfig.Current())
			return err
		},
	}
}

func cliLogger() *zap.Logger {
	logger, err := config.NewLogger()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

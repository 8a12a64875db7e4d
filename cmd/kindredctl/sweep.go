package main

import (
	"fmt"
	"time"

	"github.com/Harshitk-cp/kindred/internal/config"
	"github.com/Harshitk-cp/kindred/internal/redisdb"
	"github.com/Harshitk-cp/kindred/internal/store"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var window time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove used-response records older than the dedup window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if window <= 0 {
				window = config.DedupWindow()
			}

			rdb, err := redisdb.Connect(cmd.Context(), config.RedisAddr(), config.RedisPassword(), config.RedisDB())
			if err != nil {
				return err
			}
			defer func() { _ = rdb.Close() }()

			used := store.NewUsedResponseStore(rdb, 2*window)
			deleted, err := used.DeleteBefore(cmd.Context(), time.Now().Add(-window))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired records\n", deleted)
			return nil
		},
	}
	cmd.Flags().DurationVar(&window, "window", 0, "dedup window (defaults to DEDUP_WINDOW)")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/kindred/internal/config"
	"github.com/Harshitk-cp/kindred/internal/service"
	"github.com/spf13/cobra"
)

func newDetectCmd() *cobra.Command {
	var patternsPath string

	cmd := &cobra.Command{
		Use:   "detect <message>",
		Short: "Detect a behavioral correction in a user message",
		Long: `Runs the correction detector over a single message and prints the
detected correction with the confirmation the persona would give.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if patternsPath == "" {
				patternsPath = config.CorrectionPatternsPath()
			}
			patterns, err := service.LoadCorrectionPatternsFile(patternsPath)
			if err != nil {
				return err
			}

			message := strings.Join(args, " ")
			c := service.NewCorrectionDetector(patterns).Detect(message)
			out := cmd.OutOrStdout()
			if c == nil {
				fmt.Fprintln(out, "no correction detected")
				return nil
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(c); err != nil {
				return err
			}
			fmt.Fprintln(out, service.Confirmation(c))
			return nil
		},
	}
	cmd.Flags().StringVar(&patternsPath, "patterns", "", "YAML file overriding the built-in correction patterns")
	return cmd
}

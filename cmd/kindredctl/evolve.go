package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Harshitk-cp/kindred/internal/domain"
	"github.com/Harshitk-cp/kindred/internal/service"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// evolveInput is the offline evidence bundle read by `kindredctl evolve`.
type evolveInput struct {
	PersonaID uuid.UUID                 `json:"persona_id"`
	Traits    domain.PersonaTraits      `json:"traits"`
	Patterns  []domain.PatternMetric    `json:"patterns"`
	Feedback  []domain.Feedback         `json:"feedback"`
	Previous  *domain.EvolutionSnapshot `json:"previous,omitempty"`
}

func newEvolveCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "evolve --input evidence.json",
		Short: "Compute personality adjustments from a file of patterns and feedback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			var in evolveInput
			if err := json.Unmarshal(data, &in); err != nil {
				return fmt.Errorf("parse input: %w", err)
			}
			if in.PersonaID == uuid.Nil {
				in.PersonaID = uuid.New()
			}

			result := service.NewEvolver(cliLogger()).Evolve(in.PersonaID, in.Traits, in.Patterns, in.Feedback, in.Previous)
			out := cmd.OutOrStdout()
			if result == nil {
				fmt.Fprintln(out, "no usable pattern metrics; nothing to adapt yet")
				return nil
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "JSON file with traits, patterns and feedback")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckKeyCmd(state *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-key",
		Short: "Verify the API credential against the models endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			apiClient, err := state.openAIClient(out)
			if err != nil {
				return err
			}

			models, err := apiClient.ListModels(cmd.Context())
			if err != nil {
				state.log.Error("API key check failed: %v", err)

				return fmt.Errorf("API key check failed: %w", err)
			}

			state.log.Info("API key valid, %d models available", len(models.Models))
			_, _ = fmt.Fprintf(out, "API key valid: %d models available\n", len(models.Models))

			return nil
		},
	}
}

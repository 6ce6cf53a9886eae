package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregates a user's pull requests and outputs them as JSON",
	Long: `Aggregates the public pull requests of a GitHub user: counts per category,
counts per organization and the time from creation to merge, and outputs the
result in JSON format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		summary, err := a.dashboard.Summary(cmd.Context(), a.cfg.GitHub.Username)
		if err != nil {
			return fmt.Errorf("failed to aggregate stats: %w", err)
		}

		// Marshal the results into a pretty-printed JSON string.
		jsonData, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results to JSON: %w", err)
		}

		// Print the final JSON to standard output.
		fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

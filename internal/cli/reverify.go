package cli

import (
	"time"

	"github.com/spf13/cobra"

	"broadcast-tracker/internal/app"
)

var (
	reverifyOlderThan time.Duration
	reverifyDryRun    bool
)

var reverifyCmd = &cobra.Command{
	Use:   "reverify",
	Short: "Re-run delayed checks for broadcasts with missing outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ReverifyOptions{
			OlderThan: reverifyOlderThan,
			DryRun:    reverifyDryRun,
		}

		return getApp().Reverify(cmd.Context(), opts)
	},
}

func init() {
	reverifyCmd.Flags().DurationVar(&reverifyOlderThan, "older-than", 0, "Only consider broadcasts older than this (defaults to 5m)")
	reverifyCmd.Flags().BoolVar(&reverifyDryRun, "dry-run", false, "List pending broadcasts without writing outcomes")
}

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/feral-file/ff-sticker/internal/adapter"
	"github.com/feral-file/ff-sticker/internal/sticker/workspace"
)

var sweepMaxAge time.Duration

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Removes stale conversion temp files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := workspace.NewManager(fs, adapter.NewClock(), cliCfg.Sticker.ResolvedTempDir())
		if err != nil {
			return err
		}

		maxAge := sweepMaxAge
		if maxAge <= 0 {
			maxAge = cliCfg.Sticker.TempMaxAge
		}

		removed, err := ws.Sweep(cmd.Context(), maxAge)
		if err != nil {
			return fmt.Errorf("failed to sweep %s: %w", ws.Dir(), err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d file(s) from %s\n", removed, ws.Dir())
		return err
	},
}

func init() {
	sweepCmd.Flags().DurationVar(&sweepMaxAge, "max-age", 0, "Remove files older than this (default: sticker.temp_max_age)")
	rootCmd.AddCommand(sweepCmd)
}

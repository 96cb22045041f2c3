//go:build cgo

package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feral-file/ff-sticker/internal/logger"
	"github.com/feral-file/ff-sticker/internal/sticker"
	"github.com/feral-file/ff-sticker/internal/watcher"
)

var (
	watchFlags packFlags
	watchOut   string
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Converts every media file dropped into a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pipeline, err := sticker.NewPipeline(ctx, &cliCfg.Sticker)
		if err != nil {
			return fmt.Errorf("failed to create sticker pipeline: %w", err)
		}
		defer func() {
			if err := pipeline.Close(); err != nil {
				logger.Warn("Failed to close pipeline", zap.Error(err))
			}
		}()
		pipeline.StartSweeper(ctx)

		outDir := watchOut
		if outDir == "" {
			outDir = cliCfg.Watch.OutputDir
		}
		meta := watchFlags.metadata()

		w := watcher.NewWatcher(watcher.Config{
			Dir:      args[0],
			Debounce: cliCfg.Watch.Debounce,
		})
		return w.Run(ctx, func(ctx context.Context, path string) error {
			out, err := outputPath(path, outDir)
			if err != nil {
				return err
			}
			result, err := convertSource(ctx, pipeline.Converter, path, meta, out)
			if err != nil {
				return err
			}
			logger.InfoCtx(ctx, "Sticker written",
				zap.String("source", path),
				zap.String("output", out),
				zap.String("backend", result.Backend),
				zap.Int("size", result.Size()),
			)
			return nil
		})
	},
}

func init() {
	addPackFlags(watchCmd, &watchFlags)
	watchCmd.Flags().StringVarP(&watchOut, "output", "o", "", "Output directory (default: the watched folder)")
	rootCmd.AddCommand(watchCmd)
}

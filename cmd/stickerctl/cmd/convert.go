//go:build cgo

package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feral-file/ff-sticker/internal/domain"
	"github.com/feral-file/ff-sticker/internal/logger"
	"github.com/feral-file/ff-sticker/internal/sticker"
)

var (
	convertFlags packFlags
	convertOut   string
)

var convertCmd = &cobra.Command{
	Use:   "convert <file|url>",
	Short: "Converts a local file or URL into a tagged WebP sticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pipeline, err := sticker.NewPipeline(ctx, &cliCfg.Sticker)
		if err != nil {
			return fmt.Errorf("failed to create sticker pipeline: %w", err)
		}
		defer func() {
			if err := pipeline.Close(); err != nil {
				logger.Warn("Failed to close pipeline", zap.Error(err))
			}
		}()

		out := convertOut
		if out == "" {
			if out, err = outputPath(args[0], ""); err != nil {
				return err
			}
		}

		result, err := convertSource(ctx, pipeline.Converter, args[0], convertFlags.metadata(), out)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bytes via %s, tagged=%t\n", out, result.Size(), result.Backend, result.Tagged)
		return nil
	},
}

// convertSource converts a path or URL and writes the sticker to out
func convertSource(ctx context.Context, converter sticker.Converter, source string, meta *domain.PackMetadata, out string) (*sticker.Result, error) {
	req := &domain.ConversionRequest{Metadata: meta}
	if isURL(source) {
		req.URL = source
	} else {
		data, err := fs.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", source, err)
		}
		req.Data = data
		req.FilenameHint = filepath.Base(source)
	}

	result, err := converter.Convert(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s: %w", source, err)
	}

	if err := fs.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := fs.WriteFile(out, result.Data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", out, err)
	}

	return result, nil
}

func addPackFlags(cmd *cobra.Command, f *packFlags) {
	cmd.Flags().StringVar(&f.packName, "pack-name", "", "Sticker pack name")
	cmd.Flags().StringVar(&f.author, "author", "", "Sticker pack publisher")
	cmd.Flags().StringSliceVar(&f.emojis, "emoji", nil, "Emoji category, repeatable")
	cmd.Flags().StringToStringVar(&f.extra, "extra", nil, "Extra metadata key=value pairs")
}

func init() {
	addPackFlags(convertCmd, &convertFlags)
	convertCmd.Flags().StringVarP(&convertOut, "output", "o", "", "Output file (default <name>.webp next to the source)")
	rootCmd.AddCommand(convertCmd)
}

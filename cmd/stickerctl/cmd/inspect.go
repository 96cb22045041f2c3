package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feral-file/ff-sticker/internal/adapter"
	"github.com/feral-file/ff-sticker/internal/stickermeta"
	"github.com/feral-file/ff-sticker/internal/webpmux"
)

// inspectOutput is printed by stickerctl inspect
type inspectOutput struct {
	File     string         `json:"file"`
	Size     int            `json:"size"`
	Width    int            `json:"width"`
	Height   int            `json:"height"`
	Animated bool           `json:"animated"`
	Metadata map[string]any `json:"metadata"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.webp>",
	Short: "Prints the sticker pack metadata embedded in a WebP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := fs.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		out, err := inspect(args[0], data)
		if err != nil {
			return err
		}

		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func inspect(name string, data []byte) (*inspectOutput, error) {
	container, err := webpmux.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("not a WebP file: %w", err)
	}

	payload, err := stickermeta.NewEncoder(adapter.NewJSON()).Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sticker metadata: %w", err)
	}

	width, height, err := container.CanvasSize()
	if err != nil {
		return nil, fmt.Errorf("failed to read canvas size: %w", err)
	}

	return &inspectOutput{
		File:     name,
		Size:     len(data),
		Width:    width,
		Height:   height,
		Animated: container.IsAnimated(),
		Metadata: payload.Fields,
	}, nil
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

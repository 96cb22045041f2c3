package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-sticker/internal/adapter"
	"github.com/feral-file/ff-sticker/internal/config"
	"github.com/feral-file/ff-sticker/internal/logger"
)

var (
	configFile string
	envPath    string
	debug      bool

	cliCfg *config.CLIConfig
	fs     = adapter.NewFileSystem()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "stickerctl",
	Short:         "Converts images and short videos into WhatsApp stickers",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadCLIConfig(configFile, envPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if debug {
			cfg.Debug = true
		}
		cliCfg = cfg

		return logger.Initialize(logger.Config{
			Debug:           cfg.Debug,
			SentryDSN:       cfg.SentryDSN,
			BreadcrumbLevel: zapcore.InfoLevel,
			Tags: map[string]string{
				"service": "stickerctl",
			},
		})
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	err := rootCmd.Execute()
	logger.Flush(2 * time.Second)
	if err != nil {
		logger.Error(err, zap.String("command", "stickerctl"))
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", "config/", "Path to environment files")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

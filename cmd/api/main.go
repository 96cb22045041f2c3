//go:build cgo

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-sticker/internal/api/middleware"
	"github.com/feral-file/ff-sticker/internal/api/rest"
	"github.com/feral-file/ff-sticker/internal/api/server"
	"github.com/feral-file/ff-sticker/internal/config"
	"github.com/feral-file/ff-sticker/internal/logger"
	"github.com/feral-file/ff-sticker/internal/sticker"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "sticker-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Sticker API")

	// Build the conversion pipeline
	pipeline, err := sticker.NewPipeline(ctx, &cfg.Sticker)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create sticker pipeline", zap.Error(err))
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			logger.Error(err, zap.String("component", "pipeline"))
		}
	}()
	pipeline.StartSweeper(ctx)

	caps := pipeline.Converter.Capabilities()
	logger.InfoCtx(ctx, "Probed transcode capabilities",
		zap.Bool("ffmpeg", caps.FFmpeg),
		zap.Bool("ffmpeg_webp", caps.FFmpegWebP),
		zap.String("version", caps.Version),
	)

	// Create REST handler
	handler := rest.NewHandler(rest.Config{
		MaxUploadSize:  cfg.Server.MaxUploadSize,
		ConvertTimeout: cfg.ConvertTimeout,
	}, pipeline.Converter, pipeline.Metadata)

	authCfg := middleware.AuthConfig{
		JWTPublicKey: cfg.Auth.JWTPublicKey,
		APIKeys:      cfg.Auth.APIKeys,
	}
	if !authCfg.Enabled() {
		logger.WarnCtx(ctx, "No JWT public key or API keys configured, the API is unauthenticated")
	}

	// Create and start server
	srv := server.New(server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}, handler, authCfg)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err, zap.String("component", "server"))
	}

	logger.Info("Sticker API stopped")
}

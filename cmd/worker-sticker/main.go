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

	"github.com/feral-file/ff-sticker/internal/adapter"
	"github.com/feral-file/ff-sticker/internal/config"
	"github.com/feral-file/ff-sticker/internal/logger"
	"github.com/feral-file/ff-sticker/internal/sticker"
	"github.com/feral-file/ff-sticker/internal/uploader"
	"github.com/feral-file/ff-sticker/internal/worker"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadWorkerStickerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "worker-sticker",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Worker Sticker")

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

	// Initialize Cloudflare client
	cfClient, err := adapter.NewCloudflareClient(cfg.Cloudflare.APIToken)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create Cloudflare client", zap.Error(err))
	}
	stickerUploader := uploader.NewUploader(cfClient, uploader.Config{
		AccountID:         cfg.Cloudflare.AccountID,
		RequireSignedURLs: cfg.Cloudflare.RequireSignedURLs,
		MaxRetries:        cfg.UploadMaxRetries,
	})
	logger.InfoCtx(ctx, "Initialized Cloudflare Images uploader",
		zap.String("accountID", cfg.Cloudflare.AccountID),
	)

	// Connect to NATS JetStream
	nc, js, err := worker.Connect(worker.ConnConfig{
		URL:            cfg.NATS.URL,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: cfg.NATS.ConnectionName,
	}, adapter.NewNatsJetStream())
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to NATS", zap.Error(err), zap.String("url", cfg.NATS.URL))
	}
	defer nc.Close()

	stickerWorker := worker.NewWorker(worker.Config{
		StreamName:     cfg.NATS.StreamName,
		ConsumerName:   cfg.NATS.ConsumerName,
		JobSubject:     cfg.NATS.JobSubject,
		ResultSubject:  cfg.NATS.ResultSubject,
		AckWait:        cfg.NATS.AckWait,
		MaxDeliver:     cfg.NATS.MaxDeliver,
		ConvertTimeout: cfg.ConvertTimeout,
	}, js, pipeline.Converter, stickerUploader, adapter.NewJSON(), adapter.NewClock())

	errCh := make(chan error, 1)
	go func() {
		errCh <- stickerWorker.Run(ctx)
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Shutting down Worker Sticker...", zap.String("signal", sig.String()))
		cancel()
		if err := <-errCh; err != nil {
			logger.Error(err, zap.String("component", "worker"))
		}
	case err := <-errCh:
		if err != nil {
			logger.ErrorCtx(ctx, err, zap.String("component", "worker"))
		}
		cancel()
	}

	logger.Info("Worker Sticker stopped")
}

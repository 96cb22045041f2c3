//go:build cgo

package sticker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/ff-sticker/internal/adapter"
	"github.com/feral-file/ff-sticker/internal/cache"
	"github.com/feral-file/ff-sticker/internal/config"
	"github.com/feral-file/ff-sticker/internal/downloader"
	"github.com/feral-file/ff-sticker/internal/logger"
	"github.com/feral-file/ff-sticker/internal/media/rasterizer"
	"github.com/feral-file/ff-sticker/internal/sticker/backend"
	"github.com/feral-file/ff-sticker/internal/sticker/source"
	"github.com/feral-file/ff-sticker/internal/sticker/workspace"
	"github.com/feral-file/ff-sticker/internal/stickermeta"
	"github.com/feral-file/ff-sticker/internal/uri"
)

// Pipeline is a converter wired from configuration together with the pieces the binaries need directly
type Pipeline struct {
	Converter Converter
	Workspace *workspace.Manager
	Metadata  stickermeta.Encoder

	cfg   *config.StickerConfig
	cache cache.Cache
}

// NewPipeline probes the host, builds both backends and returns a ready converter
func NewPipeline(ctx context.Context, cfg *config.StickerConfig) (*Pipeline, error) {
	// Initialize adapters
	fileSystem := adapter.NewFileSystem()
	clock := adapter.NewClock()
	runner := adapter.NewCommandRunner()
	jsonAdapter := adapter.NewJSON()
	ioAdapter := adapter.NewIO()
	httpClient := adapter.NewHTTPClient(cfg.HTTPTimeout, cfg.UserAgent)

	mediaDownloader := downloader.NewDownloader(httpClient, ioAdapter, cfg.MaxInputSize)

	ws, err := workspace.NewManager(fileSystem, clock, cfg.ResolvedTempDir())
	if err != nil {
		return nil, err
	}

	caps := backend.ProbeCapabilities(ctx, runner, cfg.FFmpegPath, cfg.FFprobePath)
	if !caps.PrimaryAvailable() {
		logger.WarnCtx(ctx, "ffmpeg with libwebp is not available, animated stickers will not be produced")
	}

	uriResolver := uri.NewResolver(&uri.Config{
		IPFSGateways:    cfg.URI.IPFSGateways,
		ArweaveGateways: cfg.URI.ArweaveGateways,
		OnChFSGateways:  cfg.URI.OnchfsGateways,
	})

	metadata := stickermeta.NewEncoder(jsonAdapter)

	backends := []backend.Backend{
		backend.NewFFmpegBackend(backend.FFmpegConfig{
			PrimarySize:   cfg.PrimarySize,
			ReducedSize:   cfg.ReducedSize,
			FrameRate:     cfg.FrameRate,
			MaxOutputSize: cfg.MaxOutputSize,
		}, caps, runner, ws, fileSystem),
		backend.NewNativeBackend(backend.NativeConfig{
			Size:      cfg.Fallback.Size,
			Quality:   cfg.Fallback.Quality,
			TagOutput: cfg.Fallback.TagOutput,
		}, mediaDownloader,
			adapter.NewImageEncoder(),
			rasterizer.NewRasterizer(adapter.NewResvgClient(), &rasterizer.Config{Width: cfg.Fallback.Size}),
			metadata,
		),
	}

	var resultCache cache.Cache
	if cfg.Cache.Enabled {
		resultCache, err = cache.NewBadgerCache(cache.Config{
			Path: cfg.Cache.Path,
			TTL:  cfg.Cache.TTL,
		})
		if err != nil {
			return nil, err
		}
		logger.InfoCtx(ctx, "Result cache enabled", zap.String("path", cfg.Cache.Path), zap.Duration("ttl", cfg.Cache.TTL))
	}

	converter := NewConverter(Config{
		Concurrency:  cfg.Concurrency,
		CacheVariant: CacheVariant(cfg),
	}, caps, source.NewResolver(mediaDownloader, uriResolver), backends, metadata, resultCache)

	return &Pipeline{
		Converter: converter,
		Workspace: ws,
		Metadata:  metadata,
		cfg:       cfg,
		cache:     resultCache,
	}, nil
}

// StartSweeper clears leftovers from earlier runs and keeps sweeping until ctx is done
func (p *Pipeline) StartSweeper(ctx context.Context) {
	if p.cfg.TempMaxAge <= 0 || p.cfg.SweepInterval <= 0 {
		return
	}
	if _, err := p.Workspace.Sweep(ctx, p.cfg.TempMaxAge); err != nil {
		logger.WarnCtx(ctx, "Initial workspace sweep failed", zap.Error(err))
	}
	go p.Workspace.RunSweeper(ctx, p.cfg.SweepInterval, p.cfg.TempMaxAge)
}

// Close stops the converter and closes the cache
func (p *Pipeline) Close() error {
	if err := p.Converter.Close(); err != nil {
		return err
	}
	if p.cache != nil {
		if err := p.cache.Close(); err != nil {
			return fmt.Errorf("failed to close cache: %w", err)
		}
	}
	return nil
}

// CacheVariant encodes every knob that changes backend output
func CacheVariant(cfg *config.StickerConfig) string {
	return fmt.Sprintf("p%d-r%d-f%d-m%d-s%d-q%g",
		cfg.PrimarySize,
		cfg.ReducedSize,
		cfg.FrameRate,
		cfg.MaxOutputSize,
		cfg.Fallback.Size,
		cfg.Fallback.Quality,
	)
}

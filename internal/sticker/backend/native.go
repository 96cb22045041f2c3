//go:build cgo

package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/feral-file/ff-sticker/internal/adapter"
	"github.com/feral-file/ff-sticker/internal/domain"
	"github.com/feral-file/ff-sticker/internal/downloader"
	"github.com/feral-file/ff-sticker/internal/logger"
	"github.com/feral-file/ff-sticker/internal/media/rasterizer"
	"github.com/feral-file/ff-sticker/internal/stickermeta"
)

// ErrVideoUnsupported is returned by the native backend for video input
var ErrVideoUnsupported = errors.New("video input requires ffmpeg")

// NativeConfig holds the in-process backend knobs
type NativeConfig struct {
	// Size is the edge of the square output canvas
	Size int
	// Quality is the lossy WebP quality factor in [0, 100]
	Quality float32
	// TagOutput embeds pack metadata before returning
	TagOutput bool
}

type nativeBackend struct {
	cfg        NativeConfig
	downloader downloader.Downloader
	encoder    adapter.ImageEncoder
	rasterizer rasterizer.Rasterizer
	metadata   stickermeta.Encoder
}

// NewNativeBackend creates the in-process fallback backend. metadata may be nil when TagOutput is off.
func NewNativeBackend(
	cfg NativeConfig,
	d downloader.Downloader,
	encoder adapter.ImageEncoder,
	r rasterizer.Rasterizer,
	metadata stickermeta.Encoder,
) Backend {
	if cfg.Size <= 0 {
		cfg.Size = domain.DEFAULT_FALLBACK_SIZE
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = domain.DEFAULT_FALLBACK_QUALITY
	}

	return &nativeBackend{
		cfg:        cfg,
		downloader: d,
		encoder:    encoder,
		rasterizer: r,
		metadata:   metadata,
	}
}

func (b *nativeBackend) Name() string {
	return NameNative
}

// Available is always true, the backend has no external requirements
func (b *nativeBackend) Available() bool {
	return true
}

// Transcode decodes a still image, fits it into a transparent square canvas and encodes it to WebP.
// Animated input keeps its first frame.
func (b *nativeBackend) Transcode(ctx context.Context, media *domain.Media) ([]byte, error) {
	if media.Format.Kind == domain.MediaKindVideo {
		return nil, fmt.Errorf("%w: %s", ErrVideoUnsupported, media.Format.MIMEType)
	}

	data := media.Data
	if len(data) == 0 {
		if media.SourceURL == "" {
			return nil, fmt.Errorf("no source data or URL")
		}
		result, err := b.downloader.Download(ctx, media.SourceURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch source: %w", err)
		}
		data = result.Data
	}

	img, err := b.decode(ctx, data, media.Format)
	if err != nil {
		return nil, err
	}

	canvas := b.fitSquare(img)

	var buf bytes.Buffer
	if err := b.encoder.EncodeWebP(&buf, canvas, adapter.WebPOptions{Quality: b.cfg.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode webp: %w", err)
	}
	out := buf.Bytes()

	logger.InfoCtx(ctx, "Native transcode completed",
		zap.Int("sourceWidth", img.Bounds().Dx()),
		zap.Int("sourceHeight", img.Bounds().Dy()),
		zap.Int("outputSize", len(out)),
	)

	if !b.cfg.TagOutput || b.metadata == nil {
		return out, nil
	}

	tagged, err := b.metadata.Encode(out, media.Metadata)
	if err != nil {
		logger.WarnCtx(ctx, "Native backend could not tag output", zap.Error(err))
		return out, nil
	}
	return tagged.Data, nil
}

func (b *nativeBackend) decode(ctx context.Context, data []byte, format domain.SniffedFormat) (image.Image, error) {
	if format.IsSVG() {
		img, err := b.rasterizer.Rasterize(ctx, data, b.cfg.Size)
		if err != nil {
			return nil, fmt.Errorf("failed to rasterize svg: %w", err)
		}
		return img, nil
	}

	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", format.MIMEType, err)
	}
	logger.DebugCtx(ctx, "Decoded source image", zap.String("decoder", name))
	return img, nil
}

// fitSquare scales img so its longer edge matches the canvas and centres it on a transparent square
func (b *nativeBackend) fitSquare(img image.Image) *image.NRGBA {
	size := b.cfg.Size
	bounds := img.Bounds()

	var scaled *image.NRGBA
	if bounds.Dx() >= bounds.Dy() {
		scaled = imaging.Resize(img, size, 0, imaging.Lanczos)
	} else {
		scaled = imaging.Resize(img, 0, size, imaging.Lanczos)
	}

	canvas := imaging.New(size, size, color.NRGBA{})
	return imaging.PasteCenter(canvas, scaled)
}

//go:build cgo

package rasterizer

import (
	"context"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/feral-file/ff-sticker/internal/adapter"
	"github.com/feral-file/ff-sticker/internal/logger"
)

// ErrEmptyRender is returned when the SVG renders to an image with no pixels
var ErrEmptyRender = errors.New("svg rendered to an empty image")

// Rasterizer renders SVG documents so the in-process backend can treat them as bitmaps
//
//go:generate mockgen -source=rasterizer.go -destination=../../mocks/media_rasterizer.go -package=mocks -mock_names=Rasterizer=MockRasterizer
//go:generate sh -c "printf '//go:build cgo\n\n' | cat - ../../mocks/media_rasterizer.go > ../../mocks/media_rasterizer.go.tmp && mv ../../mocks/media_rasterizer.go.tmp ../../mocks/media_rasterizer.go"
type Rasterizer interface {
	// Rasterize renders svgData scaled to fit width, keeping the aspect ratio.
	// A non-positive width uses the configured default width.
	Rasterize(ctx context.Context, svgData []byte, width int) (image.Image, error)
}

type rasterizer struct {
	resvgClient adapter.ResvgClient
	width       int
}

// Config holds configuration for the rasterizer
type Config struct {
	// Width is the default target width (0 = use SVG natural size)
	// Height is automatically calculated to maintain aspect ratio using ScaleBestFit
	Width int
}

// NewRasterizer creates a new SVG rasterizer instance
func NewRasterizer(resvgClient adapter.ResvgClient, cfg *Config) Rasterizer {
	if cfg == nil {
		cfg = &Config{}
	}

	return &rasterizer{
		resvgClient: resvgClient,
		width:       cfg.Width,
	}
}

// Rasterize renders SVG data with best fit scaling
func (r *rasterizer) Rasterize(ctx context.Context, svgData []byte, width int) (image.Image, error) {
	if width <= 0 {
		width = r.width
	}

	logger.DebugCtx(ctx, "Rasterizing SVG",
		zap.Int("svgSize", len(svgData)),
		zap.Int("targetWidth", width),
	)

	img, err := r.resvgClient.Render(svgData, width)
	if err != nil {
		return nil, fmt.Errorf("failed to render SVG: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, ErrEmptyRender
	}

	logger.DebugCtx(ctx, "SVG rendered",
		zap.Int("renderedWidth", bounds.Dx()),
		zap.Int("renderedHeight", bounds.Dy()),
	)

	return img, nil
}

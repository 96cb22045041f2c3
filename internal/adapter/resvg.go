//go:build cgo

package adapter

import (
	"image"

	"github.com/xo/resvg"
)

// ResvgClient defines an interface for SVG rendering using resvg
//
//go:generate mockgen -source=resvg.go -destination=../mocks/resvg.go -package=mocks -mock_names=ResvgClient=MockResvgClient
type ResvgClient interface {
	// Render renders SVG data scaled to the given width, keeping aspect ratio.
	// A width of 0 keeps the natural SVG size.
	Render(data []byte, width int) (image.Image, error)
}

// RealResvgClient implements ResvgClient using the actual resvg library
type RealResvgClient struct{}

// NewResvgClient creates a new real resvg client
func NewResvgClient() ResvgClient {
	return &RealResvgClient{}
}

func (c *RealResvgClient) Render(data []byte, width int) (image.Image, error) {
	opts := []resvg.Option{resvg.WithScaleMode(resvg.ScaleBestFit)}
	if width > 0 {
		opts = append(opts, resvg.WithWidth(width))
	}
	return resvg.Render(data, opts...)
}

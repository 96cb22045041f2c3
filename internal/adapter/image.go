//go:build cgo

package adapter

import (
	"image"
	"io"

	"github.com/chai2010/webp"
)

// WebPOptions controls the WebP encoder
type WebPOptions struct {
	// Quality is the lossy quality factor in [0, 100]
	Quality float32
	// Lossless switches to VP8L encoding and ignores Quality
	Lossless bool
}

// ImageEncoder defines an interface for encoding images
//
//go:generate mockgen -source=image.go -destination=../mocks/image.go -package=mocks -mock_names=ImageEncoder=MockImageEncoder
type ImageEncoder interface {
	// EncodeWebP encodes an image to a still WebP
	EncodeWebP(w io.Writer, img image.Image, opts WebPOptions) error
}

// RealImageEncoder implements ImageEncoder using libwebp bindings
type RealImageEncoder struct{}

// NewImageEncoder creates a new real image encoder
func NewImageEncoder() ImageEncoder {
	return &RealImageEncoder{}
}

// EncodeWebP encodes an image to WebP
func (e *RealImageEncoder) EncodeWebP(w io.Writer, img image.Image, opts WebPOptions) error {
	return webp.Encode(w, img, &webp.Options{
		Lossless: opts.Lossless,
		Quality:  opts.Quality,
	})
}

// Package backend holds the transcode strategies that turn sniffed media into WebP.
package backend

import (
	"bytes"
	"context"

	"github.com/feral-file/ff-sticker/internal/domain"
)

// Backend names
const (
	NameFFmpeg = "ffmpeg"
	NameNative = "native"
)

// Backend is a single transcode strategy
//
//go:generate mockgen -source=backend.go -destination=../../mocks/backend.go -package=mocks -mock_names=Backend=MockBackend
type Backend interface {
	// Name identifies the backend in logs and errors
	Name() string

	// Available reports whether the backend can run in this process
	Available() bool

	// Transcode converts media into WebP bytes.
	// The returned bytes are not trusted until they pass ClassifyOutput.
	Transcode(ctx context.Context, media *domain.Media) ([]byte, error)
}

// OutputVerdict is the result of inspecting bytes returned by a backend
type OutputVerdict int

const (
	// VerdictWebP means the bytes carry the RIFF/WEBP signature
	VerdictWebP OutputVerdict = iota
	// VerdictMarkup means the bytes look like an HTML or XML document, usually an error page
	VerdictMarkup
	// VerdictNotWebP means the bytes are empty or carry some other signature
	VerdictNotWebP
)

func (v OutputVerdict) String() string {
	switch v {
	case VerdictWebP:
		return "webp"
	case VerdictMarkup:
		return "markup"
	default:
		return "not_webp"
	}
}

var (
	riffMagic = []byte("RIFF")
	webpMagic = []byte("WEBP")
)

// ClassifyOutput checks the container signature of backend output.
// Only the header is inspected so payload bytes that happen to spell "html" are never misread.
func ClassifyOutput(b []byte) OutputVerdict {
	if len(b) >= 12 && bytes.Equal(b[0:4], riffMagic) && bytes.Equal(b[8:12], webpMagic) {
		return VerdictWebP
	}

	head := bytes.TrimLeft(b, " \t\r\n\ufeff")
	if len(head) > 0 && head[0] == '<' {
		return VerdictMarkup
	}
	return VerdictNotWebP
}

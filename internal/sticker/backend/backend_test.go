package backend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feral-file/ff-sticker/internal/logger"
	"github.com/feral-file/ff-sticker/internal/sticker/backend"
)

func init() {
	_ = logger.Initialize(logger.Config{
		Debug: true,
	})
}

// webpHeader is the 12-byte RIFF/WEBP preamble followed by a VP8L chunk header
var webpHeader = []byte{
	'R', 'I', 'F', 'F', 0x00, 0x00, 0x00, 0x00, 'W', 'E', 'B', 'P',
	'V', 'P', '8', 'L', 0x00, 0x00, 0x00, 0x00,
}

// webpOfSize returns a buffer of n bytes carrying a WebP signature
func webpOfSize(n int) []byte {
	out := make([]byte, n)
	copy(out, webpHeader)
	return out
}

func TestClassifyOutput(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  backend.OutputVerdict
	}{
		{
			name:  "webp",
			input: webpOfSize(64),
			want:  backend.VerdictWebP,
		},
		{
			name:  "html error page",
			input: []byte("<html><body>502 Bad Gateway</body></html>"),
			want:  backend.VerdictMarkup,
		},
		{
			name:  "doctype with leading whitespace",
			input: []byte("\r\n  <!DOCTYPE html><html></html>"),
			want:  backend.VerdictMarkup,
		},
		{
			name:  "webp payload containing html text",
			input: append(webpOfSize(20), []byte("<html>")...),
			want:  backend.VerdictWebP,
		},
		{
			name:  "riff but not webp",
			input: []byte("RIFF\x00\x00\x00\x00WAVEfmt "),
			want:  backend.VerdictNotWebP,
		},
		{
			name:  "png",
			input: []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0},
			want:  backend.VerdictNotWebP,
		},
		{
			name:  "truncated",
			input: []byte("RIFF\x00\x00"),
			want:  backend.VerdictNotWebP,
		},
		{
			name:  "empty",
			input: nil,
			want:  backend.VerdictNotWebP,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, backend.ClassifyOutput(tt.input))
		})
	}
}

func TestOutputVerdictString(t *testing.T) {
	assert.Equal(t, "webp", backend.VerdictWebP.String())
	assert.Equal(t, "markup", backend.VerdictMarkup.String())
	assert.Equal(t, "not_webp", backend.VerdictNotWebP.String())
}

package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversionRequestValidate(t *testing.T) {
	tests := []struct {
		name     string
		request  ConversionRequest
		expected error
	}{
		{
			name:     "data only",
			request:  ConversionRequest{Data: []byte{0x89, 'P', 'N', 'G'}},
			expected: nil,
		},
		{
			name:     "url only",
			request:  ConversionRequest{URL: "https://example.com/cat.gif"},
			expected: nil,
		},
		{
			name:     "neither set",
			request:  ConversionRequest{},
			expected: ErrInvalidRequest,
		},
		{
			name:     "both set",
			request:  ConversionRequest{Data: []byte{1}, URL: "https://example.com/cat.gif"},
			expected: ErrInvalidRequest,
		},
		{
			name:     "blank url",
			request:  ConversionRequest{URL: "   "},
			expected: ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.request.Validate())
		})
	}
}

func TestPackMetadataEmojiCategories(t *testing.T) {
	assert.Equal(t, []string{""}, PackMetadata{}.EmojiCategories())
	assert.Equal(t, []string{"😀", "🎉"}, PackMetadata{Categories: []string{"😀", "🎉"}}.EmojiCategories())
}

func TestPackMetadataOrDefault(t *testing.T) {
	req := &ConversionRequest{}
	assert.Equal(t, PackMetadata{}, req.PackMetadataOrDefault())

	req.Metadata = &PackMetadata{PackName: "Pack", Author: "Me"}
	assert.Equal(t, "Pack", req.PackMetadataOrDefault().PackName)
}

func TestConversionErrorMatching(t *testing.T) {
	cause := errors.New("exit status 1")
	err := fmt.Errorf("convert: %w", NewConversionError(FailureExhausted, "ffmpeg", cause))

	assert.True(t, errors.Is(err, ErrExhausted))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrUnsupportedFormat))
	assert.Equal(t, FailureExhausted, KindOf(err))
	assert.Equal(t, FailureKind(""), KindOf(cause))
	assert.Equal(t, "exhausted_failure (backend ffmpeg): exit status 1", NewConversionError(FailureExhausted, "ffmpeg", cause).Error())
}

func TestSniffedFormatIsSVG(t *testing.T) {
	assert.True(t, SniffedFormat{MIMEType: "image/svg+xml"}.IsSVG())
	assert.False(t, SniffedFormat{MIMEType: "image/png"}.IsSVG())
}

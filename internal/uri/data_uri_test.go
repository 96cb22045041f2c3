package uri_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-sticker/internal/uri"
)

func TestIsDataURI(t *testing.T) {
	assert.True(t, uri.IsDataURI("data:image/gif;base64,R0lGODlh"))
	assert.True(t, uri.IsDataURI(" data:,hello"))
	assert.False(t, uri.IsDataURI("https://example.com/data:image"))
	assert.False(t, uri.IsDataURI("ipfs://QmHash"))
}

func TestDecodeDataURI(t *testing.T) {
	t.Run("base64 image", func(t *testing.T) {
		// "GIF89a" base64 encoded
		decoded, err := uri.DecodeDataURI("data:image/gif;base64,R0lGODlh")
		require.NoError(t, err)
		assert.Equal(t, "image/gif", decoded.MediaType)
		assert.Equal(t, []byte("GIF89a"), decoded.Data)
	})

	t.Run("percent encoded svg", func(t *testing.T) {
		decoded, err := uri.DecodeDataURI("data:image/svg+xml,%3Csvg%2F%3E")
		require.NoError(t, err)
		assert.Equal(t, "image/svg+xml", decoded.MediaType)
		assert.Equal(t, []byte("<svg/>"), decoded.Data)
	})

	t.Run("text is rejected", func(t *testing.T) {
		_, err := uri.DecodeDataURI("data:text/plain;base64,aGVsbG8=")
		assert.ErrorIs(t, err, uri.ErrUnsupportedMediaType)
	})

	t.Run("default media type is rejected", func(t *testing.T) {
		_, err := uri.DecodeDataURI("data:,hello")
		assert.ErrorIs(t, err, uri.ErrUnsupportedMediaType)
	})

	t.Run("empty payload", func(t *testing.T) {
		decoded, err := uri.DecodeDataURI("data:image/png;base64,")
		assert.Error(t, err)
		assert.Nil(t, decoded)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := uri.DecodeDataURI("data:image/png;base64")
		assert.Error(t, err)
	})
}

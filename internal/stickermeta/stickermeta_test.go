package stickermeta_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"regexp"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-sticker/internal/adapter"
	"github.com/feral-file/ff-sticker/internal/domain"
	"github.com/feral-file/ff-sticker/internal/mocks"
	"github.com/feral-file/ff-sticker/internal/stickermeta"
	"github.com/feral-file/ff-sticker/internal/webpmux"
)

var packIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// minimalLossless is a 1x1 VP8L image with the alpha bit set
var minimalLossless = []byte{
	'R', 'I', 'F', 'F', 0x1a, 0x00, 0x00, 0x00, 'W', 'E', 'B', 'P',
	'V', 'P', '8', 'L', 0x0d, 0x00, 0x00, 0x00,
	0x2f, 0x00, 0x00, 0x00, 0x10, 0x07, 0x10, 0x11, 0x11, 0x88, 0x88, 0xfe, 0x07, 0x00,
}

func testMetadata() domain.PackMetadata {
	return domain.PackMetadata{
		PackName:   "Test Pack",
		Author:     "Tester",
		Categories: []string{"😀"},
	}
}

func TestBuildEXIF(t *testing.T) {
	payload := []byte(`{"a":1}`)
	block := stickermeta.BuildEXIF(payload)

	assert.Equal(t, []byte{
		0x49, 0x49, 0x2a, 0x00, 0x08, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x41, 0x57, 0x07, 0x00,
	}, block[:14])
	assert.Equal(t, uint32(len(payload)), binary.LittleEndian.Uint32(block[14:18]))
	assert.Equal(t, []byte{0x16, 0x00, 0x00, 0x00}, block[18:22])
	assert.Equal(t, payload, block[22:])

	parsed, err := stickermeta.ParseEXIF(block)
	require.NoError(t, err)
	assert.Equal(t, payload, parsed)
}

func TestParseEXIFErrors(t *testing.T) {
	block := stickermeta.BuildEXIF([]byte(`{"a":1}`))

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "too short", input: block[:10]},
		{name: "wrong magic", input: append([]byte("MM\x00*"), block[4:]...)},
		{name: "length past end", input: block[:len(block)-2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := stickermeta.ParseEXIF(tt.input)
			assert.ErrorIs(t, err, stickermeta.ErrMalformedEXIF)
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	enc := stickermeta.NewEncoder(adapter.NewJSON())

	tagged, err := enc.Encode(minimalLossless, testMetadata())
	require.NoError(t, err)
	assert.Regexp(t, packIDPattern, tagged.PackID)
	assert.Equal(t, []byte("RIFF"), tagged.Data[:4])
	assert.Equal(t, []byte("WEBP"), tagged.Data[8:12])

	payload, err := enc.Decode(tagged.Data)
	require.NoError(t, err)
	assert.Equal(t, tagged.PackID, payload.PackID)
	assert.Equal(t, "Test Pack", payload.PackName)
	assert.Equal(t, "Tester", payload.Publisher)
	assert.Equal(t, []string{"😀"}, payload.Emojis)
	assert.Equal(t, map[string]any{
		"sticker-pack-id":        tagged.PackID,
		"sticker-pack-name":      "Test Pack",
		"sticker-pack-publisher": "Tester",
		"emojis":                 []any{"😀"},
	}, payload.Fields)
}

func TestEncodeCanonicalPayload(t *testing.T) {
	enc := stickermeta.NewEncoder(adapter.NewJSON())

	meta := testMetadata()
	meta.PackName = "<Cats & Dogs>"
	tagged, err := enc.Encode(minimalLossless, meta)
	require.NoError(t, err)

	c, err := webpmux.Parse(tagged.Data)
	require.NoError(t, err)
	block, ok := c.EXIF()
	require.True(t, ok)
	body, err := stickermeta.ParseEXIF(block)
	require.NoError(t, err)

	expected := `{"emojis":["😀"],"sticker-pack-id":"` + tagged.PackID +
		`","sticker-pack-name":"<Cats & Dogs>","sticker-pack-publisher":"Tester"}`
	assert.Equal(t, expected, string(body))
}

func TestEncodeDefaults(t *testing.T) {
	enc := stickermeta.NewEncoder(adapter.NewJSON())

	tagged, err := enc.Encode(minimalLossless, domain.PackMetadata{})
	require.NoError(t, err)

	payload, err := enc.Decode(tagged.Data)
	require.NoError(t, err)
	assert.Equal(t, "", payload.PackName)
	assert.Equal(t, "", payload.Publisher)
	assert.Equal(t, []string{""}, payload.Emojis)
}

func TestEncodeExtraOverridesReservedKeys(t *testing.T) {
	enc := stickermeta.NewEncoder(adapter.NewJSON())

	meta := testMetadata()
	meta.Extra = map[string]any{
		"sticker-pack-id":        "stable-id",
		"sticker-pack-name":      "Overridden",
		"android-app-store-link": "https://play.google.com/store/apps/details?id=example",
		"is-avatar-sticker":      1,
	}

	tagged, err := enc.Encode(minimalLossless, meta)
	require.NoError(t, err)
	assert.Equal(t, "stable-id", tagged.PackID)

	payload, err := enc.Decode(tagged.Data)
	require.NoError(t, err)
	assert.Equal(t, "stable-id", payload.PackID)
	assert.Equal(t, "Overridden", payload.PackName)
	assert.Equal(t, "Tester", payload.Publisher)
	assert.Equal(t, "https://play.google.com/store/apps/details?id=example", payload.Fields["android-app-store-link"])
	assert.Equal(t, float64(1), payload.Fields["is-avatar-sticker"])
}

func TestEncodeIdempotent(t *testing.T) {
	enc := stickermeta.NewEncoder(adapter.NewJSON())

	first, err := enc.Encode(minimalLossless, testMetadata())
	require.NoError(t, err)
	second, err := enc.Encode(minimalLossless, testMetadata())
	require.NoError(t, err)

	require.Len(t, second.Data, len(first.Data))
	normalized := bytes.Replace(first.Data, []byte(first.PackID), []byte(second.PackID), 1)
	assert.Equal(t, second.Data, normalized)

	// Re-tagging tagged output replaces the block instead of stacking a second one
	retagged, err := enc.Encode(first.Data, testMetadata())
	require.NoError(t, err)
	require.Len(t, retagged.Data, len(first.Data))
	normalized = bytes.Replace(first.Data, []byte(first.PackID), []byte(retagged.PackID), 1)
	assert.Equal(t, retagged.Data, normalized)
}

func TestEncodeInvalidWebP(t *testing.T) {
	enc := stickermeta.NewEncoder(adapter.NewJSON())

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "html", input: []byte("<html>oops</html>")},
		{name: "riff header only", input: []byte("RIFF\x04\x00\x00\x00WEBP")},
		{name: "truncated", input: minimalLossless[:20]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tagged, err := enc.Encode(tt.input, testMetadata())
			assert.ErrorIs(t, err, domain.ErrMetadataInjection)
			assert.Nil(t, tagged)
		})
	}
}

func TestEncodeMarshalFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockJSON := mocks.NewMockJSON(ctrl)
	mockJSON.EXPECT().MarshalCanonical(gomock.Any()).Return(nil, errors.New("unsupported value"))

	enc := stickermeta.NewEncoder(mockJSON)
	_, err := enc.Encode(minimalLossless, testMetadata())
	assert.ErrorIs(t, err, domain.ErrMetadataInjection)
}

func TestDecodeWithoutMetadata(t *testing.T) {
	enc := stickermeta.NewEncoder(adapter.NewJSON())

	_, err := enc.Decode(minimalLossless)
	assert.ErrorIs(t, err, stickermeta.ErrNoMetadata)
}

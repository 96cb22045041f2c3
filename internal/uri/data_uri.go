package uri

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vincent-petithory/dataurl"
)

var (
	// ErrEmptyDataURI is returned for a data URI without payload
	ErrEmptyDataURI = errors.New("invalid data URI: empty data")

	// ErrUnsupportedMediaType is returned when a data URI declares something other than image/* or video/*
	ErrUnsupportedMediaType = errors.New("unsupported data URI media type")
)

// DataURI is a decoded RFC 2397 data URI
type DataURI struct {
	// MediaType is the declared type, e.g. image/gif
	MediaType string
	Data      []byte
}

// IsDataURI reports whether raw looks like a data URI
func IsDataURI(raw string) bool {
	_, ok := cutScheme(strings.TrimSpace(raw), "data:")
	return ok
}

// DecodeDataURI decodes an inline image or video data URI.
// The declared media type is not trusted for classification; callers still sniff the bytes.
func DecodeDataURI(raw string) (*DataURI, error) {
	parsed, err := dataurl.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode data URI: %w", err)
	}

	mediaType := strings.ToLower(parsed.ContentType())
	if !isImageOrVideo(mediaType) {
		return nil, fmt.Errorf("%w: %s (only image/* and video/* are supported)", ErrUnsupportedMediaType, mediaType)
	}

	if len(parsed.Data) == 0 {
		return nil, ErrEmptyDataURI
	}

	return &DataURI{
		MediaType: mediaType,
		Data:      parsed.Data,
	}, nil
}

func isImageOrVideo(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/") || strings.HasPrefix(mediaType, "video/")
}

package rest

import (
	"fmt"

	"github.com/feral-file/ff-sticker/internal/domain"
	"github.com/feral-file/ff-sticker/internal/sticker/backend"
)

// Response headers describing a converted sticker
const (
	HEADER_BACKEND = "X-Sticker-Backend"
	HEADER_PACK_ID = "X-Sticker-Pack-Id"
	HEADER_TAGGED  = "X-Sticker-Tagged"
	HEADER_CACHED  = "X-Sticker-Cached"
)

// ConvertRequest is the JSON body of POST /api/v1/stickers.
// Data is base64 encoded in JSON.
type ConvertRequest struct {
	Data       []byte         `json:"data,omitempty"`
	URL        string         `json:"url,omitempty"`
	Filename   string         `json:"filename,omitempty"`
	PackName   string         `json:"pack_name"`
	Author     string         `json:"author"`
	Categories []string       `json:"categories,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// ToDomain converts the request into a conversion request
func (r *ConvertRequest) ToDomain() *domain.ConversionRequest {
	return &domain.ConversionRequest{
		Data:         r.Data,
		URL:          r.URL,
		FilenameHint: r.Filename,
		Metadata: &domain.PackMetadata{
			PackName:   r.PackName,
			Author:     r.Author,
			Categories: r.Categories,
			Extra:      r.Extra,
		},
	}
}

// InspectResponse describes the sticker metadata found in a WebP
type InspectResponse struct {
	PackID    string         `json:"pack_id"`
	PackName  string         `json:"pack_name"`
	Publisher string         `json:"publisher"`
	Emojis    []string       `json:"emojis"`
	Fields    map[string]any `json:"fields"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	Animated  bool           `json:"animated"`
	Size      int            `json:"size"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status       string               `json:"status"`
	Capabilities backend.Capabilities `json:"capabilities"`
}

func formatLimit(n int64) string {
	return fmt.Sprintf("maximum is %d bytes", n)
}

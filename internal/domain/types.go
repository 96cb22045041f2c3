package domain

import (
	"strings"
)

// MediaKind is the coarse classification produced by the format sniffer
type MediaKind string

const (
	MediaKindImage   MediaKind = "image"
	MediaKindVideo   MediaKind = "video"
	MediaKindUnknown MediaKind = "unknown"
)

// SniffedFormat is the result of magic-byte detection
type SniffedFormat struct {
	MIMEType  string    `json:"mime_type"`
	Extension string    `json:"extension"`
	Kind      MediaKind `json:"kind"`
}

// IsSVG reports whether the format is an SVG document
func (f SniffedFormat) IsSVG() bool {
	return strings.HasPrefix(f.MIMEType, "image/svg")
}

// PackMetadata describes the sticker pack identity embedded into the output
type PackMetadata struct {
	PackName   string         `json:"pack_name"`
	Author     string         `json:"author"`
	Categories []string       `json:"categories,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// EmojiCategories returns the categories, defaulting to a single empty string
func (m PackMetadata) EmojiCategories() []string {
	if len(m.Categories) == 0 {
		return []string{""}
	}
	return m.Categories
}

// ConversionRequest is a conversion input. Exactly one of Data and URL must be set.
type ConversionRequest struct {
	Data         []byte
	URL          string
	FilenameHint string
	Metadata     *PackMetadata
}

// Validate checks that exactly one source is set
func (r *ConversionRequest) Validate() error {
	hasData := len(r.Data) > 0
	hasURL := strings.TrimSpace(r.URL) != ""
	if hasData == hasURL {
		return ErrInvalidRequest
	}
	return nil
}

// PackMetadataOrDefault returns the request metadata, or empty metadata when unset
func (r *ConversionRequest) PackMetadataOrDefault() PackMetadata {
	if r.Metadata == nil {
		return PackMetadata{}
	}
	return *r.Metadata
}

// Media is the sniffed source handed to a transcode backend
type Media struct {
	Data      []byte
	SourceURL string
	Format    SniffedFormat
	Metadata  PackMetadata
}

// Package sniffer classifies source media by its leading magic bytes.
package sniffer

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/feral-file/ff-sticker/internal/domain"
)

// Sniff detects the format of data. The filename hint only fills in a missing extension
// for recognised media and never changes the detected type.
func Sniff(data []byte, filenameHint string) domain.SniffedFormat {
	if len(data) == 0 {
		return unknown()
	}

	mtype := mimetype.Detect(data)
	if mtype.Is(domain.UNKNOWN_MIME_TYPE) {
		return unknown()
	}

	mimeType := mtype.String()
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}

	kind := kindOf(mtype)
	ext := strings.TrimPrefix(mtype.Extension(), ".")
	if ext == "" && kind != domain.MediaKindUnknown {
		ext = strings.ToLower(strings.TrimPrefix(filepath.Ext(filenameHint), "."))
	}
	if ext == "" {
		ext = domain.UNKNOWN_EXTENSION
	}

	return domain.SniffedFormat{
		MIMEType:  mimeType,
		Extension: ext,
		Kind:      kind,
	}
}

// kindOf walks up the mimetype hierarchy until it finds an image or video type
func kindOf(mtype *mimetype.MIME) domain.MediaKind {
	for m := mtype; m != nil; m = m.Parent() {
		switch {
		case strings.HasPrefix(m.String(), "image/"):
			return domain.MediaKindImage
		case strings.HasPrefix(m.String(), "video/"):
			return domain.MediaKindVideo
		}
	}
	return domain.MediaKindUnknown
}

func unknown() domain.SniffedFormat {
	return domain.SniffedFormat{
		MIMEType:  domain.UNKNOWN_MIME_TYPE,
		Extension: domain.UNKNOWN_EXTENSION,
		Kind:      domain.MediaKindUnknown,
	}
}

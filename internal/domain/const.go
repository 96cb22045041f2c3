package domain

const (
	// Sticker size policy
	DEFAULT_MAX_STICKER_SIZE = 1_000_000
	DEFAULT_PRIMARY_SIZE     = 320
	DEFAULT_REDUCED_SIZE     = 224
	DEFAULT_FRAME_RATE       = 15

	// Fallback canvas, matches the WhatsApp sticker canvas
	DEFAULT_FALLBACK_SIZE    = 512
	DEFAULT_FALLBACK_QUALITY = 75

	// Sniffer values used when no signature matches
	UNKNOWN_MIME_TYPE = "application/octet-stream"
	UNKNOWN_EXTENSION = "bin"

	// WebP MIME type served for tagged stickers
	WEBP_MIME_TYPE = "image/webp"
)

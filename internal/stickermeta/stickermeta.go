// Package stickermeta embeds and reads WhatsApp sticker pack metadata in WebP files.
package stickermeta

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/feral-file/ff-sticker/internal/adapter"
	"github.com/feral-file/ff-sticker/internal/domain"
	"github.com/feral-file/ff-sticker/internal/webpmux"
)

// JSON payload keys read by WhatsApp clients
const (
	KeyPackID    = "sticker-pack-id"
	KeyPackName  = "sticker-pack-name"
	KeyPublisher = "sticker-pack-publisher"
	KeyEmojis    = "emojis"
)

const packIDBytes = 16

// ErrNoMetadata is returned by Decode when the WebP carries no EXIF chunk
var ErrNoMetadata = errors.New("webp has no sticker metadata")

// Tagged is a WebP with sticker metadata spliced in
type Tagged struct {
	Data   []byte
	PackID string
}

// Payload is the decoded JSON payload of a sticker EXIF block
type Payload struct {
	PackID    string
	PackName  string
	Publisher string
	Emojis    []string
	// Fields holds every key of the payload, including the ones above
	Fields map[string]any
}

// Encoder embeds and reads sticker metadata
//
//go:generate mockgen -source=stickermeta.go -destination=../mocks/stickermeta.go -package=mocks -mock_names=Encoder=MockMetadataEncoder
type Encoder interface {
	// Encode tags webp with meta under a freshly generated pack id.
	// Errors wrap domain.ErrMetadataInjection.
	Encode(webp []byte, meta domain.PackMetadata) (*Tagged, error)

	// Decode reads the sticker metadata back out of webp
	Decode(webp []byte) (*Payload, error)
}

type encoder struct {
	json adapter.JSON
}

// NewEncoder creates a metadata encoder
func NewEncoder(jsonAdapter adapter.JSON) Encoder {
	return &encoder{json: jsonAdapter}
}

// Encode builds the payload, wraps it in the EXIF block and stores it as the container's EXIF chunk
func (e *encoder) Encode(webp []byte, meta domain.PackMetadata) (*Tagged, error) {
	container, err := webpmux.Parse(webp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMetadataInjection, err)
	}

	packID, err := newPackID()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate pack id: %w", domain.ErrMetadataInjection, err)
	}

	payload := map[string]any{
		KeyPackID:    packID,
		KeyPackName:  meta.PackName,
		KeyPublisher: meta.Author,
		KeyEmojis:    meta.EmojiCategories(),
	}
	// Caller keys win, including the reserved ones
	for k, v := range meta.Extra {
		payload[k] = v
	}
	if id, ok := payload[KeyPackID].(string); ok {
		packID = id
	}

	body, err := e.json.MarshalCanonical(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal payload: %w", domain.ErrMetadataInjection, err)
	}

	if err := container.SetEXIF(BuildEXIF(body)); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMetadataInjection, err)
	}

	return &Tagged{
		Data:   container.Bytes(),
		PackID: packID,
	}, nil
}

// Decode parses the EXIF chunk of webp into a Payload
func (e *encoder) Decode(webp []byte) (*Payload, error) {
	container, err := webpmux.Parse(webp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse webp: %w", err)
	}

	block, ok := container.EXIF()
	if !ok {
		return nil, ErrNoMetadata
	}

	body, err := ParseEXIF(block)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any)
	if err := e.json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	p := &Payload{Fields: fields}
	p.PackID, _ = fields[KeyPackID].(string)
	p.PackName, _ = fields[KeyPackName].(string)
	p.Publisher, _ = fields[KeyPublisher].(string)
	if emojis, ok := fields[KeyEmojis].([]any); ok {
		for _, e := range emojis {
			if s, ok := e.(string); ok {
				p.Emojis = append(p.Emojis, s)
			}
		}
	}

	return p, nil
}

func newPackID() (string, error) {
	b := make([]byte, packIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

package stickermeta

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// exifHeaderSize is the size of the TIFF structure preceding the JSON payload
	exifHeaderSize = 22
	// exifLengthOffset is where the payload byte count is patched in
	exifLengthOffset = 14
	// exifValueOffset holds the offset of the payload from the start of the block
	exifValueOffset = 18
)

// exifHeader is a little-endian TIFF header with a single IFD entry:
// tag 0x5741, type 7 (undefined), count patched at offset 14, value at offset 22.
var exifHeader = [exifHeaderSize]byte{
	0x49, 0x49, 0x2a, 0x00, 0x08, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x41, 0x57, 0x07, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x16, 0x00, 0x00, 0x00,
}

var tiffMagic = []byte{0x49, 0x49, 0x2a, 0x00}

// ErrMalformedEXIF is returned when an EXIF block does not follow the sticker layout
var ErrMalformedEXIF = errors.New("malformed sticker exif block")

// BuildEXIF returns the header followed by payload, with the length field patched
func BuildEXIF(payload []byte) []byte {
	block := make([]byte, exifHeaderSize, exifHeaderSize+len(payload))
	copy(block, exifHeader[:])
	binary.LittleEndian.PutUint32(block[exifLengthOffset:], uint32(len(payload)))
	return append(block, payload...)
}

// ParseEXIF returns the payload carried by a sticker EXIF block
func ParseEXIF(block []byte) ([]byte, error) {
	if len(block) < exifHeaderSize || !bytes.Equal(block[:4], tiffMagic) {
		return nil, ErrMalformedEXIF
	}

	length := binary.LittleEndian.Uint32(block[exifLengthOffset:])
	offset := binary.LittleEndian.Uint32(block[exifValueOffset:])
	if uint64(offset)+uint64(length) > uint64(len(block)) {
		return nil, fmt.Errorf("%w: payload of %d bytes at offset %d exceeds block of %d bytes",
			ErrMalformedEXIF, length, offset, len(block))
	}

	return block[offset : offset+length], nil
}

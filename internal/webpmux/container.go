// Package webpmux reads and rewrites the chunk structure of WebP RIFF containers.
package webpmux

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/image/riff"
	"golang.org/x/image/webp"
)

var (
	// ErrNotWebP is returned when the bytes are not a RIFF/WEBP container
	ErrNotWebP = errors.New("not a webp container")

	// ErrNoImageData is returned when the first chunk is not VP8, VP8L or VP8X
	ErrNoImageData = errors.New("webp container has no image chunk")
)

var (
	fccRIFF = riff.FourCC{'R', 'I', 'F', 'F'}
	fccWEBP = riff.FourCC{'W', 'E', 'B', 'P'}

	FourCCVP8  = riff.FourCC{'V', 'P', '8', ' '}
	FourCCVP8L = riff.FourCC{'V', 'P', '8', 'L'}
	FourCCVP8X = riff.FourCC{'V', 'P', '8', 'X'}
	FourCCALPH = riff.FourCC{'A', 'L', 'P', 'H'}
	FourCCANIM = riff.FourCC{'A', 'N', 'I', 'M'}
	FourCCANMF = riff.FourCC{'A', 'N', 'M', 'F'}
	FourCCICCP = riff.FourCC{'I', 'C', 'C', 'P'}
	FourCCEXIF = riff.FourCC{'E', 'X', 'I', 'F'}
	FourCCXMP  = riff.FourCC{'X', 'M', 'P', ' '}
)

// VP8X feature flags
const (
	FlagAnimation byte = 0x02
	FlagXMP       byte = 0x04
	FlagEXIF      byte = 0x08
	FlagAlpha     byte = 0x10
	FlagICC       byte = 0x20
)

const vp8xChunkSize = 10

// Chunk is a single RIFF chunk without its padding byte
type Chunk struct {
	ID   riff.FourCC
	Data []byte
}

// Container is an addressable, in-memory view of a WebP file
type Container struct {
	chunks []Chunk
}

// Parse reads a WebP file into a Container
func Parse(b []byte) (*Container, error) {
	if len(b) < 12 || !bytes.Equal(b[0:4], fccRIFF[:]) || !bytes.Equal(b[8:12], fccWEBP[:]) {
		return nil, ErrNotWebP
	}

	formType, r, err := riff.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to read riff header: %w", err)
	}
	if formType != fccWEBP {
		return nil, ErrNotWebP
	}

	c := &Container{}
	for {
		id, size, chunkData, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read chunk: %w", err)
		}

		data := make([]byte, size)
		if _, err := io.ReadFull(chunkData, data); err != nil {
			return nil, fmt.Errorf("failed to read chunk %q: %w", id[:], err)
		}
		c.chunks = append(c.chunks, Chunk{ID: id, Data: data})
	}

	if len(c.chunks) == 0 {
		return nil, ErrNoImageData
	}
	switch c.chunks[0].ID {
	case FourCCVP8, FourCCVP8L, FourCCVP8X:
	default:
		return nil, ErrNoImageData
	}
	if c.chunks[0].ID == FourCCVP8X && len(c.chunks[0].Data) < vp8xChunkSize {
		return nil, fmt.Errorf("%w: short VP8X chunk", ErrNoImageData)
	}

	return c, nil
}

// Chunks returns the chunks in file order
func (c *Container) Chunks() []Chunk {
	return c.chunks
}

// Chunk returns the data of the first chunk with the given id
func (c *Container) Chunk(id riff.FourCC) ([]byte, bool) {
	for _, ch := range c.chunks {
		if ch.ID == id {
			return ch.Data, true
		}
	}
	return nil, false
}

// IsExtended reports whether the container uses the VP8X extended format
func (c *Container) IsExtended() bool {
	return c.chunks[0].ID == FourCCVP8X
}

// IsAnimated reports whether the container holds an animation
func (c *Container) IsAnimated() bool {
	_, ok := c.Chunk(FourCCANIM)
	return ok
}

// Flags returns the VP8X feature flags, or 0 for a simple container
func (c *Container) Flags() byte {
	if !c.IsExtended() {
		return 0
	}
	return c.chunks[0].Data[0]
}

// CanvasSize returns the canvas dimensions
func (c *Container) CanvasSize() (int, int, error) {
	if c.IsExtended() {
		d := c.chunks[0].Data
		return int(uint24(d[4:7])) + 1, int(uint24(d[7:10])) + 1, nil
	}

	cfg, err := webp.DecodeConfig(bytes.NewReader(c.Bytes()))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode webp config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// EXIF returns the EXIF chunk payload
func (c *Container) EXIF() ([]byte, bool) {
	return c.Chunk(FourCCEXIF)
}

// SetEXIF stores data as the container's only EXIF chunk.
// A simple container is upgraded to VP8X first.
func (c *Container) SetEXIF(data []byte) error {
	if err := c.ensureExtended(); err != nil {
		return err
	}

	chunks := make([]Chunk, 0, len(c.chunks)+1)
	for _, ch := range c.chunks {
		if ch.ID != FourCCEXIF {
			chunks = append(chunks, ch)
		}
	}

	// EXIF precedes XMP and follows everything else
	exif := Chunk{ID: FourCCEXIF, Data: data}
	pos := len(chunks)
	for i, ch := range chunks {
		if ch.ID == FourCCXMP {
			pos = i
			break
		}
	}
	chunks = append(chunks[:pos], append([]Chunk{exif}, chunks[pos:]...)...)

	c.chunks = chunks
	c.chunks[0].Data[0] |= FlagEXIF
	return nil
}

// ensureExtended prepends a VP8X chunk to a simple container
func (c *Container) ensureExtended() error {
	if c.IsExtended() {
		return nil
	}

	width, height, err := c.CanvasSize()
	if err != nil {
		return err
	}

	vp8x := make([]byte, vp8xChunkSize)
	vp8x[0] = c.deriveFlags()
	putUint24(vp8x[4:7], uint32(width-1))
	putUint24(vp8x[7:10], uint32(height-1))

	c.chunks = append([]Chunk{{ID: FourCCVP8X, Data: vp8x}}, c.chunks...)
	return nil
}

// deriveFlags computes VP8X flags from the chunks of a simple container
func (c *Container) deriveFlags() byte {
	var flags byte
	for _, ch := range c.chunks {
		switch ch.ID {
		case FourCCVP8L:
			// alpha_is_used is bit 28 of the 32 bits after the 0x2f signature
			if len(ch.Data) >= 5 && ch.Data[4]&0x10 != 0 {
				flags |= FlagAlpha
			}
		case FourCCALPH:
			flags |= FlagAlpha
		case FourCCANIM:
			flags |= FlagAnimation
		case FourCCICCP:
			flags |= FlagICC
		case FourCCXMP:
			flags |= FlagXMP
		case FourCCEXIF:
			flags |= FlagEXIF
		}
	}
	return flags
}

// Bytes serializes the container
func (c *Container) Bytes() []byte {
	size := 4
	for _, ch := range c.chunks {
		size += 8 + len(ch.Data) + len(ch.Data)&1
	}

	buf := make([]byte, 0, 8+size)
	buf = append(buf, fccRIFF[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(size))
	buf = append(buf, fccWEBP[:]...)
	for _, ch := range c.chunks {
		buf = append(buf, ch.ID[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(ch.Data)))
		buf = append(buf, ch.Data...)
		if len(ch.Data)&1 == 1 {
			buf = append(buf, 0)
		}
	}
	return buf
}

func uint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

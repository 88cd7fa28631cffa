package formats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"os"
)

// S16 format errors.
var (
	ErrTruncatedS16Data     = errors.New("truncated S16 data")
	ErrUnsupportedS16Format = errors.New("unsupported S16 pixel format")
	ErrS16ImageIndex        = errors.New("S16 image index out of range")
)

// S16Format is the 16-bit pixel layout of a sprite file.
type S16Format uint32

// Pixel formats.
const (
	S16RGB555 S16Format = 0
	S16RGB565 S16Format = 1
)

// String returns the format name.
func (f S16Format) String() string {
	switch f {
	case S16RGB555:
		return "RGB555"
	case S16RGB565:
		return "RGB565"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(f))
	}
}

// S16Frame is one entry of the sprite file's image table.
type S16Frame struct {
	Offset uint32
	Width  uint16
	Height uint16
}

// S16Image is one decoded sprite in RGBA format.
type S16Image struct {
	Width  uint16
	Height uint16
	Pixels []byte // RGBA, 4 bytes per pixel
}

// S16 is a parsed sprite sheet. Pixel data is decoded on request.
type S16 struct {
	Format S16Format
	Frames []S16Frame
	data   []byte
}

// s16HeaderSize is the format word plus the image count.
const s16HeaderSize = 4 + 2

// ParseS16 parses the header and image table of a sprite file.
func ParseS16(data []byte) (*S16, error) {
	if len(data) < s16HeaderSize {
		return nil, ErrTruncatedS16Data
	}

	format := S16Format(binary.LittleEndian.Uint32(data[0:4]))
	if format != S16RGB555 && format != S16RGB565 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedS16Format, uint32(format))
	}

	count := int(binary.LittleEndian.Uint16(data[4:6]))
	tableEnd := s16HeaderSize + count*8
	if len(data) < tableEnd {
		return nil, fmt.Errorf("%w: image table needs %d bytes, have %d", ErrTruncatedS16Data, tableEnd, len(data))
	}

	s := &S16{
		Format: format,
		Frames: make([]S16Frame, count),
		data:   data,
	}
	for i := range s.Frames {
		off := s16HeaderSize + i*8
		s.Frames[i] = S16Frame{
			Offset: binary.LittleEndian.Uint32(data[off:]),
			Width:  binary.LittleEndian.Uint16(data[off+4:]),
			Height: binary.LittleEndian.Uint16(data[off+6:]),
		}
	}
	return s, nil
}

// ParseS16File parses a sprite file from disk.
func ParseS16File(path string) (*S16, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading S16 file: %w", err)
	}
	return ParseS16(data)
}

// Image decodes sprite i to RGBA.
func (s *S16) Image(i int) (S16Image, error) {
	if i < 0 || i >= len(s.Frames) {
		return S16Image{}, fmt.Errorf("%w: %d of %d", ErrS16ImageIndex, i, len(s.Frames))
	}
	f := s.Frames[i]

	pixelCount := int(f.Width) * int(f.Height)
	start := int(f.Offset)
	end := start + pixelCount*2
	if start > len(s.data) || end > len(s.data) {
		return S16Image{}, fmt.Errorf("%w: image %d needs bytes %d..%d, have %d", ErrTruncatedS16Data, i, start, end, len(s.data))
	}

	decode := DecodePixel555
	if s.Format == S16RGB565 {
		decode = DecodePixel565
	}

	pixels := make([]byte, pixelCount*4)
	src := s.data[start:end]
	for p := 0; p < pixelCount; p++ {
		c := decode(binary.LittleEndian.Uint16(src[p*2:]))
		pixels[p*4] = c[0]
		pixels[p*4+1] = c[1]
		pixels[p*4+2] = c[2]
		pixels[p*4+3] = c[3]
	}

	return S16Image{Width: f.Width, Height: f.Height, Pixels: pixels}, nil
}

// ImageFor decodes the sprite referenced by a gallery image record.
func (s *S16) ImageFor(img Image) (S16Image, error) {
	for i, f := range s.Frames {
		if f.Offset == img.Offset {
			return s.Image(i)
		}
	}
	return S16Image{}, fmt.Errorf("%w: no frame at offset %d", ErrS16ImageIndex, img.Offset)
}

// DecodePixel565 expands an RGB565 pixel to RGBA. Pure black is transparent.
func DecodePixel565(p uint16) [4]uint8 {
	return rgba(uint8((p&0xf800)>>8), uint8((p&0x07e0)>>3), uint8((p&0x001f)<<3))
}

// DecodePixel555 expands an RGB555 pixel to RGBA. Pure black is transparent.
func DecodePixel555(p uint16) [4]uint8 {
	return rgba(uint8((p&0x7c00)>>7), uint8((p&0x03e0)>>2), uint8((p&0x001f)<<3))
}

func rgba(r, g, b uint8) [4]uint8 {
	if r == 0 && g == 0 && b == 0 {
		return [4]uint8{0, 0, 0, 0}
	}
	return [4]uint8{r, g, b, 255}
}

// ToNRGBA wraps the decoded pixels in an image.NRGBA without copying.
func (img S16Image) ToNRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    img.Pixels,
		Stride: int(img.Width) * 4,
		Rect:   image.Rect(0, 0, int(img.Width), int(img.Height)),
	}
}

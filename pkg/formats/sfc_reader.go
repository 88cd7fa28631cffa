package formats

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Faultbox/albia/pkg/encoding"
)

// maxSFCCount is the ceiling applied to every length-prefixed collection
// before anything is allocated for it.
const maxSFCCount = 2000

// sfcReader is a forward-only cursor over a resident SFC buffer.
type sfcReader struct {
	data []byte
	pos  int
}

func newSFCReader(data []byte) *sfcReader {
	return &sfcReader{data: data}
}

// remaining returns the number of unread bytes.
func (r *sfcReader) remaining() int {
	return len(r.data) - r.pos
}

// failAt builds an *SFCError for a field starting at offset.
func (r *sfcReader) failAt(offset int, kind error, format string, args ...any) error {
	return &SFCError{
		Offset: offset,
		Err:    fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...)),
	}
}

func (r *sfcReader) take(n int, what string) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, r.failAt(r.pos, ErrSFCUnderrun, "reading %s: need %d bytes, have %d", what, n, r.remaining())
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *sfcReader) u8(what string) (uint8, error) {
	b, err := r.take(1, what)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *sfcReader) u16(what string) (uint16, error) {
	b, err := r.take(2, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *sfcReader) u32(what string) (uint32, error) {
	b, err := r.take(4, what)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *sfcReader) i32(what string) (int32, error) {
	v, err := r.u32(what)
	return int32(v), err
}

// count16 reads a u16 element count and enforces the collection ceiling.
func (r *sfcReader) count16(what string) (int, error) {
	start := r.pos
	n, err := r.u16(what + " count")
	if err != nil {
		return 0, err
	}
	if n > maxSFCCount {
		return 0, r.failAt(start, ErrSFCCountOutOfBounds, "%s count %d exceeds %d", what, n, maxSFCCount)
	}
	return int(n), nil
}

// count32 reads a u32 element count and enforces the collection ceiling.
func (r *sfcReader) count32(what string) (int, error) {
	start := r.pos
	n, err := r.u32(what + " count")
	if err != nil {
		return 0, err
	}
	if n > maxSFCCount {
		return 0, r.failAt(start, ErrSFCCountOutOfBounds, "%s count %d exceeds %d", what, n, maxSFCCount)
	}
	return int(n), nil
}

// countedString reads a u8 length followed by that many bytes, decoded leniently.
func (r *sfcReader) countedString(what string) (string, error) {
	n, err := r.u8(what + " length")
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n), what)
	if err != nil {
		return "", err
	}
	return encoding.Lossy(b), nil
}

// fixedString reads a NUL-padded buffer of exactly n bytes.
func (r *sfcReader) fixedString(n int, what string) (string, error) {
	b, err := r.take(n, what)
	if err != nil {
		return "", err
	}
	return encoding.FixedString(b), nil
}

// inRecord prefixes the record path of an *SFCError with segment.
func inRecord(err error, segment string) error {
	var se *SFCError
	if errors.As(err, &se) {
		se.Path = append([]string{segment}, se.Path...)
		return se
	}
	return err
}

// inRecordf is inRecord with a formatted segment.
func inRecordf(err error, format string, args ...any) error {
	return inRecord(err, fmt.Sprintf(format, args...))
}

// Point is a signed 2D coordinate in source (Y-down) space.
type Point struct {
	X int32
	Y int32
}

func parsePoint(r *sfcReader, what string) (Point, error) {
	x, err := r.i32(what + ".x")
	if err != nil {
		return Point{}, err
	}
	y, err := r.i32(what + ".y")
	if err != nil {
		return Point{}, err
	}
	return Point{X: x, Y: y}, nil
}

// parsePointArray reads a u16-counted list of points.
func parsePointArray(r *sfcReader, what string) ([]Point, error) {
	n, err := r.count16(what)
	if err != nil {
		return nil, err
	}
	points := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		p, err := parsePoint(r, what)
		if err != nil {
			return nil, inRecordf(err, "%s[%d]", what, i)
		}
		points = append(points, p)
	}
	return points, nil
}

// Rect is a rectangle as stored on disk: unsigned edges, Y growing downwards.
type Rect struct {
	Left   uint32
	Top    uint32
	Right  uint32
	Bottom uint32
}

func parseRect(r *sfcReader, what string) (Rect, error) {
	var v [4]uint32
	for i, edge := range [4]string{"left", "top", "right", "bottom"} {
		x, err := r.u32(what + "." + edge)
		if err != nil {
			return Rect{}, err
		}
		v[i] = x
	}
	return Rect{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}, nil
}

// Attributes are the agent capability bits packed into one byte.
type Attributes struct {
	Carryable      bool
	Mouseable      bool
	Activatable    bool
	Container      bool
	Invisible      bool
	Floatable      bool
	HasBoundaries  bool
	SuffersGravity bool
}

// Attribute bit positions.
const (
	AttrCarryable uint8 = 1 << iota
	AttrMouseable
	AttrActivatable
	AttrContainer
	AttrInvisible
	AttrFloatable
	AttrHasBoundaries
	AttrSuffersGravity
)

// AttributesFromByte unpacks the attribute flag byte.
func AttributesFromByte(b uint8) Attributes {
	return Attributes{
		Carryable:      b&AttrCarryable != 0,
		Mouseable:      b&AttrMouseable != 0,
		Activatable:    b&AttrActivatable != 0,
		Container:      b&AttrContainer != 0,
		Invisible:      b&AttrInvisible != 0,
		Floatable:      b&AttrFloatable != 0,
		HasBoundaries:  b&AttrHasBoundaries != 0,
		SuffersGravity: b&AttrSuffersGravity != 0,
	}
}

// Byte packs the attributes back into their on-disk form.
func (a Attributes) Byte() uint8 {
	var b uint8
	set := func(on bool, bit uint8) {
		if on {
			b |= bit
		}
	}
	set(a.Carryable, AttrCarryable)
	set(a.Mouseable, AttrMouseable)
	set(a.Activatable, AttrActivatable)
	set(a.Container, AttrContainer)
	set(a.Invisible, AttrInvisible)
	set(a.Floatable, AttrFloatable)
	set(a.HasBoundaries, AttrHasBoundaries)
	set(a.SuffersGravity, AttrSuffersGravity)
	return b
}

func parseAttributes(r *sfcReader) (Attributes, error) {
	b, err := r.u8("attributes")
	if err != nil {
		return Attributes{}, err
	}
	return AttributesFromByte(b), nil
}

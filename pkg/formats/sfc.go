package formats

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Faultbox/albia/pkg/math"
)

// SFC format errors. Every decode failure wraps exactly one of these inside
// an *SFCError.
var (
	ErrSFCUnderrun          = errors.New("truncated SFC data")
	ErrSFCCountOutOfBounds  = errors.New("SFC count out of bounds")
	ErrSFCUnexpectedClass   = errors.New("unexpected SFC class name")
	ErrSFCInvalidEnum       = errors.New("invalid SFC enum value")
	ErrSFCInvalidArchiveTag = errors.New("invalid SFC archive tag")
)

// minSFCSize is the size of the smallest possible root header: a tag word,
// schema, name length and "MapData".
const minSFCSize = 2 + 2 + 2 + len(ClassMapData)

// SFCError locates a decode failure in the input.
type SFCError struct {
	Offset int      // byte offset of the field that failed
	Path   []string // record path, outermost first
	Err    error
}

func (e *SFCError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("sfc at offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("sfc %s at offset %d: %v", strings.Join(e.Path, "/"), e.Offset, e.Err)
}

func (e *SFCError) Unwrap() error {
	return e.Err
}

// RecordPath returns the slash-joined record path.
func (e *SFCError) RecordPath() string {
	return strings.Join(e.Path, "/")
}

// SFC is a decoded world save: map, agents and scenery.
type SFC struct {
	Map     MapData
	Objects []Object
	Scenery []SimpleObject

	// Trailing is the number of bytes left unread after the scenery list.
	Trailing int
}

// ParseSFC parses a world save from raw bytes.
func ParseSFC(data []byte) (*SFC, error) {
	return ParseSFCWithRegistry(data, NewClassRegistry())
}

// ParseSFCWithRegistry parses a world save using the caller's registry.
// The registry must be fresh and must not be shared with another parse.
func ParseSFCWithRegistry(data []byte, reg *ClassRegistry) (*SFC, error) {
	r := newSFCReader(data)
	if len(data) < minSFCSize {
		return nil, inRecord(r.failAt(0, ErrSFCUnderrun, "need at least %d bytes, have %d", minSFCSize, len(data)), "map")
	}

	m, err := parseMapData(r, reg)
	if err != nil {
		return nil, inRecord(err, "map")
	}

	n, err := r.count32("object")
	if err != nil {
		return nil, err
	}
	objects := make([]Object, 0, n)
	for i := 0; i < n; i++ {
		obj, err := parseObject(r, reg)
		if err != nil {
			return nil, inRecordf(err, "object[%d]", i)
		}
		objects = append(objects, obj)
	}

	n, err = r.count32("scenery")
	if err != nil {
		return nil, err
	}
	scenery := make([]SimpleObject, 0, n)
	for i := 0; i < n; i++ {
		s, err := parseSimpleObject(r, reg)
		if err != nil {
			return nil, inRecordf(err, "scenery[%d]", i)
		}
		scenery = append(scenery, s)
	}

	return &SFC{
		Map:      m,
		Objects:  objects,
		Scenery:  scenery,
		Trailing: r.remaining(),
	}, nil
}

// ParseSFCFile parses a world save from disk.
func ParseSFCFile(path string) (*SFC, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading SFC file: %w", err)
	}
	return ParseSFC(data)
}

// RoomByID returns the room with the given id, or nil.
func (s *SFC) RoomByID(id uint32) *Room {
	for i := range s.Map.Rooms {
		if s.Map.Rooms[i].ID == id {
			return &s.Map.Rooms[i]
		}
	}
	return nil
}

// RoomAt returns the first room containing the source-space point (x, y),
// or nil. Horizontal wrapping is left to the caller.
func (s *SFC) RoomAt(x, y int32) *Room {
	p := Point{X: x, Y: y}
	for i := range s.Map.Rooms {
		if s.Map.Rooms[i].Rect.Contains(p) {
			return &s.Map.Rooms[i]
		}
	}
	return nil
}

// Bounds returns the union of all room rectangles in render space.
// Returns the zero Rect if there are no rooms.
func (s *SFC) Bounds() math.Rect {
	if len(s.Map.Rooms) == 0 {
		return math.Rect{}
	}
	b := s.Map.Rooms[0].RenderRect()
	for i := 1; i < len(s.Map.Rooms); i++ {
		b = b.Union(s.Map.Rooms[i].RenderRect())
	}
	return b
}

// DanglingDoors returns doors whose target room does not exist, keyed by the
// id of the room that owns them.
func (s *SFC) DanglingDoors() map[uint32][]Door {
	ids := make(map[uint32]bool, len(s.Map.Rooms))
	for _, room := range s.Map.Rooms {
		ids[room.ID] = true
	}

	dangling := make(map[uint32][]Door)
	for _, room := range s.Map.Rooms {
		for _, doors := range room.Doors {
			for _, d := range doors {
				if !ids[d.RoomID] {
					dangling[room.ID] = append(dangling[room.ID], d)
				}
			}
		}
	}
	return dangling
}

// CountByType returns the number of rooms of each type.
func (s *SFC) CountByType() map[RoomType]int {
	counts := make(map[RoomType]int)
	for _, room := range s.Map.Rooms {
		counts[room.Type]++
	}
	return counts
}

package formats

import (
	"github.com/Faultbox/albia/pkg/encoding"
)

// Class names as they appear in archive headers.
const (
	ClassMapData      = "MapData"
	ClassGallery      = "CGallery"
	ClassRoom         = "CRoom"
	ClassDoor         = "CDoor"
	ClassObject       = "Object"
	ClassEntity       = "Entity"
	ClassSimpleObject = "SimpleObject"
)

// Archive tag markers.
const (
	archiveBigTag   = 0x7fff     // explicit 32-bit object tag follows
	archiveClassBit = 0x8000     // top bit of a 16-bit tag
	archiveTagBit   = 0x80000000 // expected marker on every derived tag
)

// ClassRegistry records which classes have already emitted a full archive
// header in the current stream. It belongs to exactly one parse and is not
// safe for concurrent use.
type ClassRegistry struct {
	classes map[string]struct{}
}

// NewClassRegistry returns an empty registry.
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{classes: make(map[string]struct{})}
}

// Contains reports whether a full header for name has been decoded.
func (c *ClassRegistry) Contains(name string) bool {
	_, ok := c.classes[name]
	return ok
}

// Register marks name as seen. Registering twice is harmless.
func (c *ClassRegistry) Register(name string) {
	c.classes[name] = struct{}{}
}

// Len returns the number of registered classes.
func (c *ClassRegistry) Len() int {
	return len(c.classes)
}

// ClassRef is the leading marker of a polymorphic record: either a full
// ArchiveHeader (first occurrence of a class) or a compact ClassTag.
type ClassRef interface {
	isClassRef()
}

// ArchiveHeader names a class the first time it appears in the stream.
type ArchiveHeader struct {
	Tag       uint16 // first nonzero word
	ObjectTag uint32 // derived or explicit tag, bit 31 always set
	Schema    uint16 // stored, not interpreted
	ClassName string
}

// ClassTag back-references a class whose header was already seen.
type ClassTag struct {
	Tag uint16
}

func (ArchiveHeader) isClassRef() {}
func (ClassTag) isClassRef()      {}

// IsHeader reports whether ref carries a full header.
func IsHeader(ref ClassRef) bool {
	_, ok := ref.(ArchiveHeader)
	return ok
}

// parseArchiveHeader decodes a full header and checks its class name.
func parseArchiveHeader(r *sfcReader, expected string) (ArchiveHeader, error) {
	var h ArchiveHeader

	// Zero words are padding between records.
	var err error
	for {
		h.Tag, err = r.u16("archive tag")
		if err != nil {
			return ArchiveHeader{}, err
		}
		if h.Tag != 0 {
			break
		}
	}

	tagOffset := r.pos - 2
	if h.Tag == archiveBigTag {
		tagOffset = r.pos
		h.ObjectTag, err = r.u32("object tag")
		if err != nil {
			return ArchiveHeader{}, err
		}
	} else {
		h.ObjectTag = uint32(h.Tag&archiveClassBit)<<16 | uint32(h.Tag&^archiveClassBit)
	}
	if h.ObjectTag&archiveTagBit == 0 {
		return ArchiveHeader{}, r.failAt(tagOffset, ErrSFCInvalidArchiveTag, "tag 0x%08x lacks class marker", h.ObjectTag)
	}

	if h.Schema, err = r.u16("schema"); err != nil {
		return ArchiveHeader{}, err
	}
	nameLen, err := r.u16("class name length")
	if err != nil {
		return ArchiveHeader{}, err
	}
	nameOffset := r.pos
	name, err := r.take(int(nameLen), "class name")
	if err != nil {
		return ArchiveHeader{}, err
	}
	h.ClassName = encoding.Lossy(name)

	if h.ClassName != expected {
		return ArchiveHeader{}, r.failAt(nameOffset, ErrSFCUnexpectedClass, "got %q, expected %q", h.ClassName, expected)
	}
	return h, nil
}

// parseClassRef runs the header-or-tag decision for one polymorphic record.
// The class is registered as soon as its header has been decoded, before any
// of the record's own fields.
func parseClassRef(r *sfcReader, reg *ClassRegistry, class string) (ClassRef, error) {
	if reg.Contains(class) {
		tag, err := r.u16("class tag")
		if err != nil {
			return nil, err
		}
		return ClassTag{Tag: tag}, nil
	}

	h, err := parseArchiveHeader(r, class)
	if err != nil {
		return nil, err
	}
	reg.Register(class)
	return h, nil
}

package formats

import (
	"fmt"

	"github.com/Faultbox/albia/pkg/math"
)

// Fixed slot counts. These arrays are never length-prefixed.
const (
	BacteriaSlots  = 100
	ObjectVarSlots = 100
)

// Door directions, in the order the four door arrays are stored.
const (
	DoorLeft = iota
	DoorRight
	DoorUp
	DoorDown
	doorDirections
)

// MaxAmountOpen is the value of a fully open door.
const MaxAmountOpen = 255

// RenderSpace converts the rectangle to render space, where Y grows upwards.
func (r Rect) RenderSpace() math.Rect {
	return math.NewRect(float32(r.Left), -float32(r.Top), float32(r.Right), -float32(r.Bottom))
}

// Width returns the horizontal extent.
func (r Rect) Width() uint32 {
	return r.Right - r.Left
}

// Height returns the vertical extent.
func (r Rect) Height() uint32 {
	return r.Bottom - r.Top
}

// Contains reports whether the source-space point p lies inside r.
func (r Rect) Contains(p Point) bool {
	return int64(p.X) >= int64(r.Left) && int64(p.X) <= int64(r.Right) &&
		int64(p.Y) >= int64(r.Top) && int64(p.Y) <= int64(r.Bottom)
}

// Vec2 converts p to a render-space vector without flipping its axis.
func (p Point) Vec2() math.Vec2 {
	return math.Vec2{X: float32(p.X), Y: float32(p.Y)}
}

// Image describes one sprite in a gallery.
type Image struct {
	ClassIndex uint16
	Status     uint8
	Width      uint32
	Height     uint32
	Offset     uint32 // byte offset of the pixel data in the sprite file
}

// Gallery is a named set of sprite images.
type Gallery struct {
	Class      ClassRef
	ImageCount uint32
	FSP        string // four-character sprite file stem
	FilePos    uint32
	Users      uint32
	Images     []Image
}

func parseImage(r *sfcReader) (Image, error) {
	var img Image
	var err error
	if img.ClassIndex, err = r.u16("class index"); err != nil {
		return Image{}, err
	}
	if img.Status, err = r.u8("status"); err != nil {
		return Image{}, err
	}
	if img.Width, err = r.u32("width"); err != nil {
		return Image{}, err
	}
	if img.Height, err = r.u32("height"); err != nil {
		return Image{}, err
	}
	if img.Offset, err = r.u32("offset"); err != nil {
		return Image{}, err
	}
	return img, nil
}

func parseGallery(r *sfcReader, reg *ClassRegistry) (Gallery, error) {
	var g Gallery
	var err error

	if g.Class, err = parseClassRef(r, reg, ClassGallery); err != nil {
		return Gallery{}, err
	}

	n, err := r.count32("image")
	if err != nil {
		return Gallery{}, err
	}
	g.ImageCount = uint32(n)
	if g.FSP, err = r.fixedString(4, "file stem"); err != nil {
		return Gallery{}, err
	}
	if g.FilePos, err = r.u32("file position"); err != nil {
		return Gallery{}, err
	}
	if g.Users, err = r.u32("users"); err != nil {
		return Gallery{}, err
	}

	g.Images = make([]Image, 0, n)
	for i := 0; i < n; i++ {
		img, err := parseImage(r)
		if err != nil {
			return Gallery{}, inRecordf(err, "image[%d]", i)
		}
		g.Images = append(g.Images, img)
	}
	return g, nil
}

// Door links a room to a neighbour through one of its four edges.
type Door struct {
	Class      ClassRef
	AmountOpen uint8  // 0 closed, 255 fully open
	RoomID     uint32 // resolved through SFC.RoomByID
}

// IsOpen reports whether anything can pass through the door.
func (d Door) IsOpen() bool {
	return d.AmountOpen > 0
}

func parseDoor(r *sfcReader, reg *ClassRegistry) (Door, error) {
	var d Door
	var err error
	if d.Class, err = parseClassRef(r, reg, ClassDoor); err != nil {
		return Door{}, err
	}
	if d.AmountOpen, err = r.u8("amount open"); err != nil {
		return Door{}, err
	}
	if d.RoomID, err = r.u32("room id"); err != nil {
		return Door{}, err
	}
	return d, nil
}

func parseDoorArray(r *sfcReader, reg *ClassRegistry) ([]Door, error) {
	n, err := r.count16("door")
	if err != nil {
		return nil, err
	}
	doors := make([]Door, 0, n)
	for i := 0; i < n; i++ {
		d, err := parseDoor(r, reg)
		if err != nil {
			return nil, inRecordf(err, "door[%d]", i)
		}
		doors = append(doors, d)
	}
	return doors, nil
}

// RoomType is the environment class of a room.
type RoomType int32

// Room types.
const (
	RoomInvalid    RoomType = -1
	RoomIndoors    RoomType = 0
	RoomSurface    RoomType = 1
	RoomUnderwater RoomType = 2
	RoomAtmosphere RoomType = 3
)

// String returns a human-readable room type name.
func (t RoomType) String() string {
	switch t {
	case RoomInvalid:
		return "Invalid"
	case RoomIndoors:
		return "Indoors"
	case RoomSurface:
		return "Surface"
	case RoomUnderwater:
		return "Underwater"
	case RoomAtmosphere:
		return "Atmosphere"
	default:
		return fmt.Sprintf("Unknown(%d)", int32(t))
	}
}

func parseRoomType(r *sfcReader) (RoomType, error) {
	start := r.pos
	v, err := r.i32("room type")
	if err != nil {
		return 0, err
	}
	t := RoomType(v)
	if t < RoomInvalid || t > RoomAtmosphere {
		return 0, r.failAt(start, ErrSFCInvalidEnum, "room type %d", v)
	}
	return t, nil
}

// DropStatus controls whether objects may be dropped in a room.
type DropStatus uint32

// Drop statuses.
const (
	DropNever      DropStatus = 0
	DropAboveFloor DropStatus = 1
	DropAlways     DropStatus = 2
)

// String returns a human-readable drop status.
func (d DropStatus) String() string {
	switch d {
	case DropNever:
		return "Never"
	case DropAboveFloor:
		return "AboveFloor"
	case DropAlways:
		return "Always"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(d))
	}
}

func parseDropStatus(r *sfcReader) (DropStatus, error) {
	start := r.pos
	v, err := r.u32("drop status")
	if err != nil {
		return 0, err
	}
	if v > uint32(DropAlways) {
		return 0, r.failAt(start, ErrSFCInvalidEnum, "drop status %d", v)
	}
	return DropStatus(v), nil
}

// BacteriaState is stored in the low two bits of a bacterium's flag byte.
type BacteriaState uint8

// Bacteria states.
const (
	BacteriaNotPresent BacteriaState = 0
	BacteriaDormant    BacteriaState = 1
	BacteriaActive     BacteriaState = 2
)

// String returns a human-readable state.
func (s BacteriaState) String() string {
	switch s {
	case BacteriaNotPresent:
		return "NotPresent"
	case BacteriaDormant:
		return "Dormant"
	case BacteriaActive:
		return "Active"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// Bacteria is one slot of a room's bacterial population.
type Bacteria struct {
	State       BacteriaState
	Antigen     uint8
	FatalLevel  uint8
	InfectLevel uint8
	Toxins      [4]uint8
}

func parseBacteria(r *sfcReader) (Bacteria, error) {
	var b Bacteria

	start := r.pos
	flags, err := r.u8("bacteria flags")
	if err != nil {
		return Bacteria{}, err
	}
	b.State = BacteriaState(flags & 0b11)
	if b.State > BacteriaActive {
		return Bacteria{}, r.failAt(start, ErrSFCInvalidEnum, "bacteria state %d", b.State)
	}

	if b.Antigen, err = r.u8("antigen"); err != nil {
		return Bacteria{}, err
	}
	if b.FatalLevel, err = r.u8("fatal level"); err != nil {
		return Bacteria{}, err
	}
	if b.InfectLevel, err = r.u8("infect level"); err != nil {
		return Bacteria{}, err
	}
	toxins, err := r.take(4, "toxins")
	if err != nil {
		return Bacteria{}, err
	}
	copy(b.Toxins[:], toxins)
	return b, nil
}

// Room is a rectangular world region with its own environment state.
type Room struct {
	Class         ClassRef
	ID            uint32
	MapClassIndex uint16
	Rect          Rect
	Doors         [doorDirections][]Door // indexed by DoorLeft..DoorDown
	Type          RoomType

	FloorValue        uint8
	InorganicNutrient uint8
	OrganicNutrient   uint8
	Temperature       uint8
	HeatSource        int32
	Pressure          uint8
	PressureSource    int32
	Wind              Point
	Light             uint8
	LightSource       int32
	Radiation         uint8
	RadiationSource   int32

	Bacteria   [BacteriaSlots]Bacteria
	Surface    []Point // floor polyline
	Visited    uint32
	MusicTrack string
	Drop       DropStatus
}

// RenderRect returns the room rectangle in render space.
func (r *Room) RenderRect() math.Rect {
	return r.Rect.RenderSpace()
}

// Ground returns the floor polyline as render-space vectors.
func (r *Room) Ground() []math.Vec2 {
	ground := make([]math.Vec2, len(r.Surface))
	for i, p := range r.Surface {
		ground[i] = p.Vec2()
	}
	return ground
}

// Neighbors returns the ids of rooms reachable through any door, in
// direction order, without duplicates.
func (r *Room) Neighbors() []uint32 {
	seen := make(map[uint32]bool)
	var ids []uint32
	for _, doors := range r.Doors {
		for _, d := range doors {
			if !seen[d.RoomID] {
				seen[d.RoomID] = true
				ids = append(ids, d.RoomID)
			}
		}
	}
	return ids
}

// DoorCount returns the number of doors on all four edges.
func (r *Room) DoorCount() int {
	n := 0
	for _, doors := range r.Doors {
		n += len(doors)
	}
	return n
}

func parseRoom(r *sfcReader, reg *ClassRegistry) (Room, error) {
	var room Room
	var err error

	if room.Class, err = parseClassRef(r, reg, ClassRoom); err != nil {
		return Room{}, err
	}
	if room.ID, err = r.u32("room id"); err != nil {
		return Room{}, err
	}
	if room.MapClassIndex, err = r.u16("map class index"); err != nil {
		return Room{}, err
	}
	if room.Rect, err = parseRect(r, "rect"); err != nil {
		return Room{}, err
	}
	for dir := 0; dir < doorDirections; dir++ {
		if room.Doors[dir], err = parseDoorArray(r, reg); err != nil {
			return Room{}, inRecordf(err, "doors[%d]", dir)
		}
	}
	if room.Type, err = parseRoomType(r); err != nil {
		return Room{}, err
	}

	if room.FloorValue, err = r.u8("floor value"); err != nil {
		return Room{}, err
	}
	if room.InorganicNutrient, err = r.u8("inorganic nutrient"); err != nil {
		return Room{}, err
	}
	if room.OrganicNutrient, err = r.u8("organic nutrient"); err != nil {
		return Room{}, err
	}
	if room.Temperature, err = r.u8("temperature"); err != nil {
		return Room{}, err
	}
	if room.HeatSource, err = r.i32("heat source"); err != nil {
		return Room{}, err
	}
	if room.Pressure, err = r.u8("pressure"); err != nil {
		return Room{}, err
	}
	if room.PressureSource, err = r.i32("pressure source"); err != nil {
		return Room{}, err
	}
	if room.Wind, err = parsePoint(r, "wind"); err != nil {
		return Room{}, err
	}
	if room.Light, err = r.u8("light"); err != nil {
		return Room{}, err
	}
	if room.LightSource, err = r.i32("light source"); err != nil {
		return Room{}, err
	}
	if room.Radiation, err = r.u8("radiation"); err != nil {
		return Room{}, err
	}
	if room.RadiationSource, err = r.i32("radiation source"); err != nil {
		return Room{}, err
	}

	for i := range room.Bacteria {
		if room.Bacteria[i], err = parseBacteria(r); err != nil {
			return Room{}, inRecordf(err, "bacteria[%d]", i)
		}
	}

	if room.Surface, err = parsePointArray(r, "surface"); err != nil {
		return Room{}, err
	}
	if room.Visited, err = r.u32("visited"); err != nil {
		return Room{}, err
	}
	if room.MusicTrack, err = r.countedString("music track"); err != nil {
		return Room{}, err
	}
	if room.Drop, err = parseDropStatus(r); err != nil {
		return Room{}, err
	}
	return room, nil
}

// MapFlags holds the world clock and wrap setting.
type MapFlags struct {
	Wrappable uint32
	TimeOfDay uint32
	DayInYear uint32
	Year      uint32
}

// IsWrappable reports whether the world wraps horizontally.
func (f MapFlags) IsWrappable() bool {
	return f.Wrappable != 0
}

// MapData is the root record: world flags, the background gallery and rooms.
type MapData struct {
	Header  ArchiveHeader
	Flags   MapFlags
	Gallery Gallery
	Rooms   []Room
}

func parseMapFlags(r *sfcReader) (MapFlags, error) {
	var f MapFlags
	var err error
	if f.Wrappable, err = r.u32("wrappable"); err != nil {
		return MapFlags{}, err
	}
	if f.TimeOfDay, err = r.u32("time of day"); err != nil {
		return MapFlags{}, err
	}
	if f.DayInYear, err = r.u32("day in year"); err != nil {
		return MapFlags{}, err
	}
	if f.Year, err = r.u32("year"); err != nil {
		return MapFlags{}, err
	}
	return f, nil
}

// parseMapData decodes the root record. Its header is always present.
func parseMapData(r *sfcReader, reg *ClassRegistry) (MapData, error) {
	var m MapData
	var err error

	if m.Header, err = parseArchiveHeader(r, ClassMapData); err != nil {
		return MapData{}, err
	}
	reg.Register(ClassMapData)

	if m.Flags, err = parseMapFlags(r); err != nil {
		return MapData{}, err
	}
	if m.Gallery, err = parseGallery(r, reg); err != nil {
		return MapData{}, inRecord(err, "gallery")
	}

	n, err := r.count32("room")
	if err != nil {
		return MapData{}, err
	}
	m.Rooms = make([]Room, 0, n)
	for i := 0; i < n; i++ {
		room, err := parseRoom(r, reg)
		if err != nil {
			return MapData{}, inRecordf(err, "room[%d]", i)
		}
		m.Rooms = append(m.Rooms, room)
	}
	return m, nil
}

package formats

import "fmt"

// animationSize is the fixed length of an entity animation string buffer.
const animationSize = 99

// Classifier identifies an agent or script by family/genus and species/event.
type Classifier struct {
	FamilyGenus  uint16
	SpeciesEvent uint32
}

// Family returns the high byte of FamilyGenus.
func (c Classifier) Family() uint8 {
	return uint8(c.FamilyGenus >> 8)
}

// Genus returns the low byte of FamilyGenus.
func (c Classifier) Genus() uint8 {
	return uint8(c.FamilyGenus)
}

// String formats the classifier as "family genus species".
func (c Classifier) String() string {
	return fmt.Sprintf("%d %d %d", c.Family(), c.Genus(), c.SpeciesEvent)
}

func parseClassifier(r *sfcReader) (Classifier, error) {
	var c Classifier
	var err error
	if c.FamilyGenus, err = r.u16("family/genus"); err != nil {
		return Classifier{}, err
	}
	if c.SpeciesEvent, err = r.u32("species/event"); err != nil {
		return Classifier{}, err
	}
	return c, nil
}

// Script is an event script attached to an agent.
type Script struct {
	Classifier Classifier
	Body       string
}

func parseScript(r *sfcReader) (Script, error) {
	var s Script
	var err error
	if s.Classifier, err = parseClassifier(r); err != nil {
		return Script{}, err
	}
	if s.Body, err = r.countedString("script body"); err != nil {
		return Script{}, err
	}
	return s, nil
}

// MovementStatus describes what is moving an agent.
type MovementStatus uint8

// Movement statuses.
const (
	MovementAutonomous  MovementStatus = 0
	MovementMouseDriven MovementStatus = 1
	MovementFloating    MovementStatus = 2
	MovementInVehicle   MovementStatus = 3
	MovementCarried     MovementStatus = 4
)

// String returns a human-readable movement status.
func (m MovementStatus) String() string {
	switch m {
	case MovementAutonomous:
		return "Autonomous"
	case MovementMouseDriven:
		return "MouseDriven"
	case MovementFloating:
		return "Floating"
	case MovementInVehicle:
		return "InVehicle"
	case MovementCarried:
		return "Carried"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

func parseMovementStatus(r *sfcReader) (MovementStatus, error) {
	start := r.pos
	v, err := r.u8("movement status")
	if err != nil {
		return 0, err
	}
	if MovementStatus(v) > MovementCarried {
		return 0, r.failAt(start, ErrSFCInvalidEnum, "movement status %d", v)
	}
	return MovementStatus(v), nil
}

// ObjectBase is the field prefix shared by objects and scenery.
type ObjectBase struct {
	Classifier  Classifier
	ID          int32
	Movement    MovementStatus
	Attributes  Attributes
	Limit       Rect
	VehiclePtr  uint16
	Active      uint8
	Gallery     Gallery
	TimerRate   uint32
	Timer       uint32
	ObjPointer  uint16
	ActiveSound uint32
	Vars        [ObjectVarSlots]uint32

	MinDoorSize        uint8
	Range              int32
	FallingObjectIndex int32
	Gravity            int32
	Velocity           Point
	Restitution        int32
	Aerodynamic        int32
	CurrentRoom        uint16
	WallLastCollided   uint32
	Threat             uint8
	Running            uint8
	Scripts            []Script
}

func parseObjectBase(r *sfcReader, reg *ClassRegistry) (ObjectBase, error) {
	var o ObjectBase
	var err error

	if o.Classifier, err = parseClassifier(r); err != nil {
		return ObjectBase{}, err
	}
	if o.ID, err = r.i32("id"); err != nil {
		return ObjectBase{}, err
	}
	if o.Movement, err = parseMovementStatus(r); err != nil {
		return ObjectBase{}, err
	}
	if o.Attributes, err = parseAttributes(r); err != nil {
		return ObjectBase{}, err
	}
	if o.Limit, err = parseRect(r, "limit"); err != nil {
		return ObjectBase{}, err
	}
	if o.VehiclePtr, err = r.u16("vehicle"); err != nil {
		return ObjectBase{}, err
	}
	if o.Active, err = r.u8("active"); err != nil {
		return ObjectBase{}, err
	}
	if o.Gallery, err = parseGallery(r, reg); err != nil {
		return ObjectBase{}, inRecord(err, "gallery")
	}
	if o.TimerRate, err = r.u32("timer rate"); err != nil {
		return ObjectBase{}, err
	}
	if o.Timer, err = r.u32("timer"); err != nil {
		return ObjectBase{}, err
	}
	if o.ObjPointer, err = r.u16("object pointer"); err != nil {
		return ObjectBase{}, err
	}
	if o.ActiveSound, err = r.u32("active sound"); err != nil {
		return ObjectBase{}, err
	}
	for i := range o.Vars {
		if o.Vars[i], err = r.u32("object variable"); err != nil {
			return ObjectBase{}, inRecordf(err, "vars[%d]", i)
		}
	}

	if o.MinDoorSize, err = r.u8("min door size"); err != nil {
		return ObjectBase{}, err
	}
	if o.Range, err = r.i32("range"); err != nil {
		return ObjectBase{}, err
	}
	if o.FallingObjectIndex, err = r.i32("falling object index"); err != nil {
		return ObjectBase{}, err
	}
	if o.Gravity, err = r.i32("gravity"); err != nil {
		return ObjectBase{}, err
	}
	if o.Velocity, err = parsePoint(r, "velocity"); err != nil {
		return ObjectBase{}, err
	}
	if o.Restitution, err = r.i32("restitution"); err != nil {
		return ObjectBase{}, err
	}
	if o.Aerodynamic, err = r.i32("aerodynamic"); err != nil {
		return ObjectBase{}, err
	}
	if o.CurrentRoom, err = r.u16("current room"); err != nil {
		return ObjectBase{}, err
	}
	if o.WallLastCollided, err = r.u32("wall last collided"); err != nil {
		return ObjectBase{}, err
	}
	if o.Threat, err = r.u8("threat"); err != nil {
		return ObjectBase{}, err
	}
	if o.Running, err = r.u8("running"); err != nil {
		return ObjectBase{}, err
	}

	n, err := r.count32("script")
	if err != nil {
		return ObjectBase{}, err
	}
	o.Scripts = make([]Script, 0, n)
	for i := 0; i < n; i++ {
		s, err := parseScript(r)
		if err != nil {
			return ObjectBase{}, inRecordf(err, "script[%d]", i)
		}
		o.Scripts = append(o.Scripts, s)
	}
	return o, nil
}

// Object is an in-world agent.
type Object struct {
	Class ClassRef
	ObjectBase
}

func parseObject(r *sfcReader, reg *ClassRegistry) (Object, error) {
	class, err := parseClassRef(r, reg, ClassObject)
	if err != nil {
		return Object{}, err
	}
	base, err := parseObjectBase(r, reg)
	if err != nil {
		return Object{}, err
	}
	return Object{Class: class, ObjectBase: base}, nil
}

// EntityState is the drawable state of an entity: which sprite, where, and
// which animation it is playing.
type EntityState struct {
	GalleryTag uint16
	ImageIndex uint8
	BaseIndex  uint8
	Plane      int32
	WorldX     int32
	WorldY     int32
	AnimFlag   uint8
	Animation  string
}

// Position returns the world coordinates as a source-space point.
func (e EntityState) Position() Point {
	return Point{X: e.WorldX, Y: e.WorldY}
}

// Animating reports whether an animation string accompanies the state.
func (e EntityState) Animating() bool {
	return e.AnimFlag == 1
}

// parseEntityState reads the drawable fields. With alwaysAnim the 99-byte
// animation buffer is present regardless of the flag byte.
func parseEntityState(r *sfcReader, alwaysAnim bool) (EntityState, error) {
	var e EntityState
	var err error

	if e.GalleryTag, err = r.u16("gallery tag"); err != nil {
		return EntityState{}, err
	}
	if e.ImageIndex, err = r.u8("image index"); err != nil {
		return EntityState{}, err
	}
	if e.BaseIndex, err = r.u8("base index"); err != nil {
		return EntityState{}, err
	}
	if e.Plane, err = r.i32("plane"); err != nil {
		return EntityState{}, err
	}
	if e.WorldX, err = r.i32("world x"); err != nil {
		return EntityState{}, err
	}
	if e.WorldY, err = r.i32("world y"); err != nil {
		return EntityState{}, err
	}
	if e.AnimFlag, err = r.u8("animation flag"); err != nil {
		return EntityState{}, err
	}
	if alwaysAnim || e.AnimFlag == 1 {
		if e.Animation, err = r.fixedString(animationSize, "animation"); err != nil {
			return EntityState{}, err
		}
	}
	return e, nil
}

// Entity is the sprite record embedded in scenery.
type Entity struct {
	Class ClassRef
	EntityState
}

func parseEntity(r *sfcReader, reg *ClassRegistry) (Entity, error) {
	class, err := parseClassRef(r, reg, ClassEntity)
	if err != nil {
		return Entity{}, err
	}
	state, err := parseEntityState(r, false)
	if err != nil {
		return Entity{}, err
	}
	return Entity{Class: class, EntityState: state}, nil
}

// SimpleObject is a piece of scenery: an object with a single entity.
type SimpleObject struct {
	Class ClassRef
	ObjectBase
	Entity Entity

	// Part is the scenery's own drawable state, stored after the entity.
	Part          EntityState
	NormalPlane   int32
	Click         [3]uint8
	Touch         uint8
	PickupHandles []Point
	PickupPoints  []Point
}

func parseSimpleObject(r *sfcReader, reg *ClassRegistry) (SimpleObject, error) {
	var s SimpleObject
	var err error

	if s.Class, err = parseClassRef(r, reg, ClassSimpleObject); err != nil {
		return SimpleObject{}, err
	}
	if s.ObjectBase, err = parseObjectBase(r, reg); err != nil {
		return SimpleObject{}, err
	}
	if s.Entity, err = parseEntity(r, reg); err != nil {
		return SimpleObject{}, inRecord(err, "entity")
	}
	if s.Part, err = parseEntityState(r, true); err != nil {
		return SimpleObject{}, inRecord(err, "part")
	}
	if s.NormalPlane, err = r.i32("normal plane"); err != nil {
		return SimpleObject{}, err
	}
	click, err := r.take(3, "click")
	if err != nil {
		return SimpleObject{}, err
	}
	copy(s.Click[:], click)
	if s.Touch, err = r.u8("touch"); err != nil {
		return SimpleObject{}, err
	}
	if s.PickupHandles, err = parsePointArray(r, "pickup handle"); err != nil {
		return SimpleObject{}, err
	}
	if s.PickupPoints, err = parsePointArray(r, "pickup point"); err != nil {
		return SimpleObject{}, err
	}
	return s, nil
}

package vrevent

import "fmt"

// TypeTag names the payload schema carried by an event.
// The empty tag means the event has no payload.
type TypeTag string

const (
	TypeNone       TypeTag = ""
	TypeInt32      TypeTag = "Int32"
	TypeSingle     TypeTag = "Single"
	TypeVector2    TypeTag = "Vector2"
	TypeVector3    TypeTag = "Vector3"
	TypeVector4    TypeTag = "Vector4"
	TypeQuaternion TypeTag = "Quaternion"
	TypeString     TypeTag = "String"
)

// ShutdownEventName is the sentinel event that stops a relay server.
const ShutdownEventName = "Shutdown"

// AllTypeTags lists every tag the codec understands, TypeNone first.
func AllTypeTags() []TypeTag {
	return []TypeTag{
		TypeNone, TypeInt32, TypeSingle, TypeVector2, TypeVector3,
		TypeVector4, TypeQuaternion, TypeString,
	}
}

// Valid reports whether t is one of the known tags.
func (t TypeTag) Valid() bool {
	switch t {
	case TypeNone, TypeInt32, TypeSingle, TypeVector2, TypeVector3,
		TypeVector4, TypeQuaternion, TypeString:
		return true
	}
	return false
}

// IsShutdown matches the two accepted spellings of the shutdown sentinel.
// Other casings such as "shutdown" are ordinary events.
func IsShutdown(name string) bool {
	return name == ShutdownEventName || name == "SHUTDOWN"
}

// Event is a named message with an optional typed payload.
//
// The set of implementations is closed: only the variants in this package
// satisfy it. Values are immutable once constructed.
type Event interface {
	Name() string
	Type() TypeTag
	fmt.Stringer

	// payload returns the value stored under m_Data, or nil for no payload.
	payload() any
}

type Vector2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

type Vector3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

type Vector4 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

type Quaternion struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

// EmptyEvent carries only a name.
type EmptyEvent struct {
	name string
}

func NewEmpty(name string) EmptyEvent { return EmptyEvent{name: name} }

func (e EmptyEvent) Name() string   { return e.name }
func (e EmptyEvent) Type() TypeTag  { return TypeNone }
func (e EmptyEvent) payload() any   { return nil }
func (e EmptyEvent) String() string { return fmt.Sprintf("%s []", e.name) }

type Int32Event struct {
	name  string
	value int32
}

func NewInt32(name string, value int32) Int32Event { return Int32Event{name: name, value: value} }

func (e Int32Event) Name() string  { return e.name }
func (e Int32Event) Type() TypeTag { return TypeInt32 }
func (e Int32Event) Value() int32  { return e.value }
func (e Int32Event) payload() any  { return e.value }
func (e Int32Event) String() string {
	return fmt.Sprintf("%s [%s] = %d", e.name, TypeInt32, e.value)
}

type SingleEvent struct {
	name  string
	value float32
}

func NewSingle(name string, value float32) SingleEvent { return SingleEvent{name: name, value: value} }

func (e SingleEvent) Name() string   { return e.name }
func (e SingleEvent) Type() TypeTag  { return TypeSingle }
func (e SingleEvent) Value() float32 { return e.value }
func (e SingleEvent) payload() any   { return e.value }
func (e SingleEvent) String() string {
	return fmt.Sprintf("%s [%s] = %g", e.name, TypeSingle, e.value)
}

type Vector2Event struct {
	name  string
	value Vector2
}

func NewVector2(name string, x, y float32) Vector2Event {
	return Vector2Event{name: name, value: Vector2{X: x, Y: y}}
}

func (e Vector2Event) Name() string   { return e.name }
func (e Vector2Event) Type() TypeTag  { return TypeVector2 }
func (e Vector2Event) Value() Vector2 { return e.value }
func (e Vector2Event) payload() any   { return e.value }
func (e Vector2Event) String() string {
	return fmt.Sprintf("%s [%s] = (%g, %g)", e.name, TypeVector2, e.value.X, e.value.Y)
}

type Vector3Event struct {
	name  string
	value Vector3
}

func NewVector3(name string, x, y, z float32) Vector3Event {
	return Vector3Event{name: name, value: Vector3{X: x, Y: y, Z: z}}
}

func (e Vector3Event) Name() string   { return e.name }
func (e Vector3Event) Type() TypeTag  { return TypeVector3 }
func (e Vector3Event) Value() Vector3 { return e.value }
func (e Vector3Event) payload() any   { return e.value }
func (e Vector3Event) String() string {
	v := e.value
	return fmt.Sprintf("%s [%s] = (%g, %g, %g)", e.name, TypeVector3, v.X, v.Y, v.Z)
}

type Vector4Event struct {
	name  string
	value Vector4
}

func NewVector4(name string, x, y, z, w float32) Vector4Event {
	return Vector4Event{name: name, value: Vector4{X: x, Y: y, Z: z, W: w}}
}

func (e Vector4Event) Name() string   { return e.name }
func (e Vector4Event) Type() TypeTag  { return TypeVector4 }
func (e Vector4Event) Value() Vector4 { return e.value }
func (e Vector4Event) payload() any   { return e.value }
func (e Vector4Event) String() string {
	v := e.value
	return fmt.Sprintf("%s [%s] = (%g, %g, %g, %g)", e.name, TypeVector4, v.X, v.Y, v.Z, v.W)
}

type QuaternionEvent struct {
	name  string
	value Quaternion
}

func NewQuaternion(name string, x, y, z, w float32) QuaternionEvent {
	return QuaternionEvent{name: name, value: Quaternion{X: x, Y: y, Z: z, W: w}}
}

func (e QuaternionEvent) Name() string      { return e.name }
func (e QuaternionEvent) Type() TypeTag     { return TypeQuaternion }
func (e QuaternionEvent) Value() Quaternion { return e.value }
func (e QuaternionEvent) payload() any      { return e.value }
func (e QuaternionEvent) String() string {
	v := e.value
	return fmt.Sprintf("%s [%s] = (%g, %g, %g, %g)", e.name, TypeQuaternion, v.X, v.Y, v.Z, v.W)
}

type StringEvent struct {
	name  string
	value string
}

func NewString(name, value string) StringEvent { return StringEvent{name: name, value: value} }

func (e StringEvent) Name() string  { return e.name }
func (e StringEvent) Type() TypeTag { return TypeString }
func (e StringEvent) Value() string { return e.value }
func (e StringEvent) payload() any  { return e.value }
func (e StringEvent) String() string {
	return fmt.Sprintf("%s [%s] = '%s'", e.name, TypeString, e.value)
}

package vrevent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrDecode is matched by every error returned from Decode.
var ErrDecode = errors.New("vrevent: decode failed")

// DecodeError describes why a JSON payload could not become an Event.
// A caller receiving one should drop the message and carry on.
type DecodeError struct {
	Type TypeTag
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type == TypeNone {
		return fmt.Sprintf("vrevent: decode: %v", e.Err)
	}
	return fmt.Sprintf("vrevent: decode %s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() []error { return []error{ErrDecode, e.Err} }

var (
	errUnknownType = errors.New("unknown data type")
	errNoName      = errors.New("m_Name is missing or empty")
	errNotInt32    = errors.New("m_Data is not a 32-bit integer")
)

// wireEvent is the JSON shape shared with the Unity, C++ and Python peers.
type wireEvent struct {
	Name     string          `json:"m_Name"`
	DataType TypeTag         `json:"m_DataTypeName"`
	Data     json.RawMessage `json:"m_Data,omitempty"`
}

// Encode serializes e. Events without a payload carry no m_Data key.
func Encode(e Event) ([]byte, error) {
	w := wireEvent{Name: e.Name(), DataType: e.Type()}
	if p := e.payload(); p != nil {
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode %s event %q: %w", e.Type(), e.Name(), err)
		}
		w.Data = data
	}
	return json.Marshal(w)
}

// Decode reconstructs the variant named by m_DataTypeName.
//
// A missing or empty tag yields an EmptyEvent. Payload fields that are absent
// decode as zero; fields of the wrong JSON kind are an error. Every event
// needs a name, so `null`, `{}` and an empty m_Name are rejected.
func Decode(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if w.Name == "" {
		return nil, &DecodeError{Type: w.DataType, Err: errNoName}
	}

	switch w.DataType {
	case TypeNone:
		return NewEmpty(w.Name), nil
	case TypeInt32:
		v, err := decodeInt32(w.Data)
		if err != nil {
			return nil, &DecodeError{Type: w.DataType, Err: err}
		}
		return NewInt32(w.Name, v), nil
	case TypeSingle:
		var v float32
		if err := decodePayload(w.Data, &v); err != nil {
			return nil, &DecodeError{Type: w.DataType, Err: err}
		}
		return NewSingle(w.Name, v), nil
	case TypeVector2:
		var v Vector2
		if err := decodePayload(w.Data, &v); err != nil {
			return nil, &DecodeError{Type: w.DataType, Err: err}
		}
		return Vector2Event{name: w.Name, value: v}, nil
	case TypeVector3:
		var v Vector3
		if err := decodePayload(w.Data, &v); err != nil {
			return nil, &DecodeError{Type: w.DataType, Err: err}
		}
		return Vector3Event{name: w.Name, value: v}, nil
	case TypeVector4:
		var v Vector4
		if err := decodePayload(w.Data, &v); err != nil {
			return nil, &DecodeError{Type: w.DataType, Err: err}
		}
		return Vector4Event{name: w.Name, value: v}, nil
	case TypeQuaternion:
		var v Quaternion
		if err := decodePayload(w.Data, &v); err != nil {
			return nil, &DecodeError{Type: w.DataType, Err: err}
		}
		return QuaternionEvent{name: w.Name, value: v}, nil
	case TypeString:
		var v string
		if err := decodePayload(w.Data, &v); err != nil {
			return nil, &DecodeError{Type: w.DataType, Err: err}
		}
		return NewString(w.Name, v), nil
	}
	return nil, &DecodeError{Type: w.DataType, Err: fmt.Errorf("%w %q", errUnknownType, string(w.DataType))}
}

// decodePayload leaves v at its zero value when m_Data is absent or null.
func decodePayload(raw json.RawMessage, v any) error {
	if isNull(raw) {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// decodeInt32 accepts integral float literals such as 7.0, which some
// engines emit for integer fields. Quoted numbers are not integers.
func decodeInt32(raw json.RawMessage) (int32, error) {
	if isNull(raw) {
		return 0, nil
	}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte(`"`)) {
		return 0, errNotInt32
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	if i, err := n.Int64(); err == nil {
		if i < math.MinInt32 || i > math.MaxInt32 {
			return 0, errNotInt32
		}
		return int32(i), nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, errNotInt32
	}
	return int32(f), nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

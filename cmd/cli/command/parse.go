package command

import (
	"fmt"
	"strconv"
	"strings"

	"vrrelay/pkg/vrevent"
)

// parseEvent builds an event from command-line words. typ is matched
// case-insensitively; "" and "none" mean no payload.
func parseEvent(name, typ string, values []string) (vrevent.Event, error) {
	if name == "" {
		return nil, fmt.Errorf("event name is required")
	}
	tag, err := parseTypeTag(typ)
	if err != nil {
		return nil, err
	}

	if tag == vrevent.TypeString {
		return vrevent.NewString(name, strings.Join(values, " ")), nil
	}

	want := map[vrevent.TypeTag]int{
		vrevent.TypeNone:       0,
		vrevent.TypeInt32:      1,
		vrevent.TypeSingle:     1,
		vrevent.TypeVector2:    2,
		vrevent.TypeVector3:    3,
		vrevent.TypeVector4:    4,
		vrevent.TypeQuaternion: 4,
	}[tag]
	if len(values) != want {
		return nil, fmt.Errorf("%s needs %d value(s), got %d", displayTag(tag), want, len(values))
	}

	if tag == vrevent.TypeInt32 {
		n, err := strconv.ParseInt(values[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid Int32 value %q: %w", values[0], err)
		}
		return vrevent.NewInt32(name, int32(n)), nil
	}

	f := make([]float32, len(values))
	for i, v := range values {
		parsed, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid float value %q: %w", v, err)
		}
		f[i] = float32(parsed)
	}

	switch tag {
	case vrevent.TypeSingle:
		return vrevent.NewSingle(name, f[0]), nil
	case vrevent.TypeVector2:
		return vrevent.NewVector2(name, f[0], f[1]), nil
	case vrevent.TypeVector3:
		return vrevent.NewVector3(name, f[0], f[1], f[2]), nil
	case vrevent.TypeVector4:
		return vrevent.NewVector4(name, f[0], f[1], f[2], f[3]), nil
	case vrevent.TypeQuaternion:
		return vrevent.NewQuaternion(name, f[0], f[1], f[2], f[3]), nil
	}
	return vrevent.NewEmpty(name), nil
}

func parseTypeTag(typ string) (vrevent.TypeTag, error) {
	if typ == "" || strings.EqualFold(typ, "none") {
		return vrevent.TypeNone, nil
	}
	for _, tag := range vrevent.AllTypeTags() {
		if strings.EqualFold(typ, string(tag)) {
			return tag, nil
		}
	}
	return "", fmt.Errorf("unknown event type %q", typ)
}

func displayTag(tag vrevent.TypeTag) string {
	if tag == vrevent.TypeNone {
		return "an event without payload"
	}
	return string(tag)
}

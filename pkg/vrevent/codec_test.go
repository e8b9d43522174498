package vrevent

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip_AllVariants(t *testing.T) {
	tests := []struct {
		name string
		evt  Event
	}{
		{"empty", NewEmpty("Trigger/Down")},
		{"int32", NewInt32("Test/Int", -42)},
		{"int32 max", NewInt32("Test/Int", math.MaxInt32)},
		{"single", NewSingle("Test/Float", 3.14159265)},
		{"single tiny", NewSingle("Test/Float", math.SmallestNonzeroFloat32)},
		{"single negative zero", NewSingle("Test/Float", float32(math.Copysign(0, -1)))},
		{"vector2", NewVector2("Test/Vector2", 1, 2)},
		{"vector3", NewVector3("Head/Position", 0.1, -0.2, 1e-7)},
		{"vector4", NewVector4("Test/Vector4", 1, 2, 3, 4)},
		{"quaternion", NewQuaternion("Head/Rotation", 0, 0, 0.70710677, 0.70710677)},
		{"string", NewString("Test/String", "Hello world")},
		{"string unicode", NewString("Test/String", "héllo \"quoted\" \n 世界")},
		{"string empty", NewString("Test/String", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.evt)
			require.NoError(t, err)

			got, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.evt, got)
			assert.Equal(t, tt.evt.Name(), got.Name())
			assert.Equal(t, tt.evt.Type(), got.Type())
		})
	}
}

func TestRoundTrip_FloatBitsExact(t *testing.T) {
	values := []float32{0.1, 1.0 / 3.0, math.MaxFloat32, -math.MaxFloat32, 16777217, 1e-38}
	for _, v := range values {
		data, err := Encode(NewVector4("bits", v, -v, v/7, v/3))
		require.NoError(t, err)

		got, err := Decode(data)
		require.NoError(t, err)

		vec := got.(Vector4Event).Value()
		assert.Equal(t, math.Float32bits(v), math.Float32bits(vec.X))
		assert.Equal(t, math.Float32bits(-v), math.Float32bits(vec.Y))
		assert.Equal(t, math.Float32bits(v/7), math.Float32bits(vec.Z))
		assert.Equal(t, math.Float32bits(v/3), math.Float32bits(vec.W))
	}
}

func TestEncode_WireShape(t *testing.T) {
	data, err := Encode(NewVector3("Hand/Position", 1, 2.5, -3))
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))
	assert.Equal(t, "Hand/Position", obj["m_Name"])
	assert.Equal(t, "Vector3", obj["m_DataTypeName"])
	assert.Equal(t, map[string]any{"x": 1.0, "y": 2.5, "z": -3.0}, obj["m_Data"])

	data, err = Encode(NewInt32("Count", 7))
	require.NoError(t, err)
	assert.JSONEq(t, `{"m_Name":"Count","m_DataTypeName":"Int32","m_Data":7}`, string(data))

	data, err = Encode(NewString("Msg", "hi"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"m_Name":"Msg","m_DataTypeName":"String","m_Data":"hi"}`, string(data))
}

func TestEncode_EmptyEventHasNoData(t *testing.T) {
	data, err := Encode(NewEmpty("Ping"))
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))
	assert.NotContains(t, obj, "m_Data")
	assert.Equal(t, "", obj["m_DataTypeName"])

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, NewEmpty("Ping"), got)
	assert.Equal(t, TypeNone, got.Type())
}

func TestEncode_NaNFails(t *testing.T) {
	_, err := Encode(NewSingle("bad", float32(math.NaN())))
	assert.Error(t, err)
}

func TestDecode_UnknownTypeTag(t *testing.T) {
	evt, err := Decode([]byte(`{"m_Name":"x","m_DataTypeName":"Bogus","m_Data":1}`))
	assert.Nil(t, evt)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))

	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, TypeTag("Bogus"), decErr.Type)
}

func TestDecode_Malformed(t *testing.T) {
	inputs := []string{
		``,
		`{`,
		`[]`,
		`"just a string"`,
		`{"m_Name":"x","m_DataTypeName":5}`,
		`{"m_Name":"x","m_DataTypeName":"Vector2","m_Data":"oops"}`,
		`{"m_Name":"x","m_DataTypeName":"Vector3","m_Data":{"x":"1"}}`,
		`{"m_Name":"x","m_DataTypeName":"String","m_Data":12}`,
		`{"m_Name":"x","m_DataTypeName":"Single","m_Data":"abc"}`,
		`{"m_Name":"x","m_DataTypeName":"Int32","m_Data":1.5}`,
		`{"m_Name":"x","m_DataTypeName":"Int32","m_Data":4294967296}`,
		`{"m_Name":"x","m_DataTypeName":"Int32","m_Data":true}`,
		`{"m_Name":"x","m_DataTypeName":"Int32","m_Data":"7"}`,
		`{"m_Name":"x","m_DataTypeName":"Int32","m_Data":" 7"}`,
	}
	for _, in := range inputs {
		evt, err := Decode([]byte(in))
		assert.Nil(t, evt, "input %q", in)
		assert.ErrorIs(t, err, ErrDecode, "input %q", in)
	}
}

func TestDecode_NamelessRejected(t *testing.T) {
	inputs := []string{
		`null`,
		`{}`,
		`{"m_Name":""}`,
		`{"m_DataTypeName":"Int32","m_Data":1}`,
	}
	for _, in := range inputs {
		evt, err := Decode([]byte(in))
		assert.Nil(t, evt, "input %q", in)
		require.ErrorIs(t, err, ErrDecode, "input %q", in)
		assert.ErrorIs(t, err, errNoName, "input %q", in)
	}
}

func TestDecode_MissingTypeTagIsEmpty(t *testing.T) {
	got, err := Decode([]byte(`{"m_Name":"Button/Press"}`))
	require.NoError(t, err)
	assert.Equal(t, NewEmpty("Button/Press"), got)

	// a stray payload on an untyped event is ignored
	got, err = Decode([]byte(`{"m_Name":"Button/Press","m_DataTypeName":"","m_Data":{"x":1}}`))
	require.NoError(t, err)
	assert.Equal(t, NewEmpty("Button/Press"), got)
}

func TestDecode_MissingFieldsAreZero(t *testing.T) {
	got, err := Decode([]byte(`{"m_Name":"v","m_DataTypeName":"Vector3","m_Data":{"x":1}}`))
	require.NoError(t, err)
	assert.Equal(t, NewVector3("v", 1, 0, 0), got)

	got, err = Decode([]byte(`{"m_Name":"q","m_DataTypeName":"Quaternion"}`))
	require.NoError(t, err)
	assert.Equal(t, NewQuaternion("q", 0, 0, 0, 0), got)

	got, err = Decode([]byte(`{"m_Name":"i","m_DataTypeName":"Int32","m_Data":null}`))
	require.NoError(t, err)
	assert.Equal(t, NewInt32("i", 0), got)
}

func TestDecode_IntegralFloatForInt32(t *testing.T) {
	got, err := Decode([]byte(`{"m_Name":"i","m_DataTypeName":"Int32","m_Data":7.0}`))
	require.NoError(t, err)
	assert.Equal(t, NewInt32("i", 7), got)

	got, err = Decode([]byte(`{"m_Name":"i","m_DataTypeName":"Int32","m_Data":-2147483648}`))
	require.NoError(t, err)
	assert.Equal(t, int32(math.MinInt32), got.(Int32Event).Value())
}

func TestDecode_UnityStyleOutput(t *testing.T) {
	// Unity's JsonUtility writes extra whitespace and key order differs
	in := `{ "m_DataTypeName" : "Vector2", "m_Data" : { "y" : 2.0, "x" : 1.0 }, "m_Name" : "Touch" }`
	got, err := Decode([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, NewVector2("Touch", 1, 2), got)
}

func TestString(t *testing.T) {
	assert.Equal(t, "Ping []", NewEmpty("Ping").String())
	assert.Equal(t, "MY_INT [Int32] = 5", NewInt32("MY_INT", 5).String())
	assert.Equal(t, "F [Single] = 1.5", NewSingle("F", 1.5).String())
	assert.Equal(t, "V [Vector2] = (1, 2)", NewVector2("V", 1, 2).String())
	assert.Equal(t, "V [Vector3] = (1, 2, 3)", NewVector3("V", 1, 2, 3).String())
	assert.Equal(t, "V [Vector4] = (1, 2, 3, 4)", NewVector4("V", 1, 2, 3, 4).String())
	assert.Equal(t, "Q [Quaternion] = (0, 0, 0, 1)", NewQuaternion("Q", 0, 0, 0, 1).String())
	assert.Equal(t, "S [String] = 'Hello client!'", NewString("S", "Hello client!").String())
}

func TestIsShutdown(t *testing.T) {
	assert.True(t, IsShutdown("Shutdown"))
	assert.True(t, IsShutdown("SHUTDOWN"))
	assert.False(t, IsShutdown("shutdown"))
	assert.False(t, IsShutdown("ShutDown"))
	assert.False(t, IsShutdown("Shutdown "))
}

func TestTypeTagValid(t *testing.T) {
	for _, tag := range AllTypeTags() {
		assert.True(t, tag.Valid(), string(tag))
	}
	assert.False(t, TypeTag("GameObject").Valid())
	assert.False(t, TypeTag("int32").Valid())
}

package value

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObject_Order(t *testing.T) {
	o := NewObject("zeta", 1, "alpha", 2)
	o.Set("mid", 3)
	o.Set("zeta", 4)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, o.Keys())
	assert.Equal(t, 3, o.Len())

	v, ok := o.Get("zeta")
	require.True(t, ok)
	assert.Equal(t, 4, v)

	_, ok = o.Get("missing")
	assert.False(t, ok)

	var empty Object
	assert.Equal(t, 0, empty.Len())
	assert.Nil(t, empty.Keys())
	empty.Set("a", true)
	assert.Equal(t, []string{"a"}, empty.Keys())
}

func TestObject_Lookup(t *testing.T) {
	o := NewObject("lastUpdatedSlot", uint64(5), "total_amount", uint64(6))

	key, v, ok := o.Lookup("last_updated_slot")
	require.True(t, ok)
	assert.Equal(t, "lastUpdatedSlot", key)
	assert.Equal(t, uint64(5), v)

	key, v, ok = o.Lookup("totalAmount")
	require.True(t, ok)
	assert.Equal(t, "total_amount", key)
	assert.Equal(t, uint64(6), v)

	_, _, ok = o.Lookup("nope")
	assert.False(t, ok)
}

func TestObject_NilValues(t *testing.T) {
	o := NewObject("memo", nil)
	o.Set("closed_at", nil)

	assert.Equal(t, []string{"memo", "closed_at"}, o.Keys())
	assert.True(t, o.Has("memo"))

	v, ok := o.Get("memo")
	require.True(t, ok)
	assert.Nil(t, v)

	key, v, ok := o.Lookup("closedAt")
	require.True(t, ok)
	assert.Equal(t, "closed_at", key)
	assert.Nil(t, v)

	assert.False(t, o.Has("other"))
	_, _, ok = o.Lookup("other")
	assert.False(t, ok)
}

func TestObject_MarshalJSON(t *testing.T) {
	o := NewObject(
		"b", []byte{1, 2},
		"a", NewObject("y", "s", "x", nil),
		"n", new(big.Int).Lsh(big.NewInt(1), 100),
	)

	encoded, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Equal(t, `{"b":[1,2],"a":{"y":"s","x":null},"n":1267650600228229401496703205376}`, string(encoded))
}

func TestParseJSON_PreservesOrder(t *testing.T) {
	parsed, err := ParseJSON([]byte(`{"z": 1, "a": [true, null, "s"], "m": {"k2": 2, "k1": 18446744073709551615}}`))
	require.NoError(t, err)

	o, ok := parsed.(*Object)
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m"}, o.Keys())

	a, _ := o.Get("a")
	assert.Equal(t, []interface{}{true, nil, "s"}, a)

	m, _ := o.Get("m")
	assert.Equal(t, []string{"k2", "k1"}, m.(*Object).Keys())

	big1, _ := m.(*Object).Get("k1")
	assert.Equal(t, json.Number("18446744073709551615"), big1)

	_, err = ParseJSON([]byte(`{"a": 1} {}`))
	assert.Error(t, err)

	_, err = ParseJSON([]byte(`{"a": `))
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	normalized := Normalize(map[string]interface{}{
		"b": 1,
		"a": []interface{}{map[string]interface{}{"y": 1, "x": 2}},
	})

	o := normalized.(*Object)
	assert.Equal(t, []string{"a", "b"}, o.Keys())

	a, _ := o.Get("a")
	assert.Equal(t, []string{"x", "y"}, a.([]interface{})[0].(*Object).Keys())
}

func TestToBigInt(t *testing.T) {
	for _, tc := range []struct {
		in       interface{}
		expected string
	}{
		{int8(-5), "-5"},
		{uint64(18446744073709551615), "18446744073709551615"},
		{float64(42), "42"},
		{json.Number("340282366920938463463374607431768211455"), "340282366920938463463374607431768211455"},
		{json.Number("1e3"), "1000"},
		{"0x10", "16"},
		{" -7 ", "-7"},
		{big.NewInt(9), "9"},
	} {
		n, err := ToBigInt(tc.in)
		require.NoError(t, err, "%v", tc.in)
		assert.Equal(t, tc.expected, n.String())
	}

	for _, in := range []interface{}{1.5, "abc", true, nil, json.Number("1.25")} {
		_, err := ToBigInt(in)
		assert.ErrorIs(t, err, ErrNotANumber, "%v", in)
	}
}

func TestInRange(t *testing.T) {
	assert.True(t, InRange[uint8](big.NewInt(255)))
	assert.False(t, InRange[uint8](big.NewInt(256)))
	assert.False(t, InRange[uint8](big.NewInt(-1)))
	assert.True(t, InRange[int8](big.NewInt(-128)))
	assert.False(t, InRange[int8](big.NewInt(-129)))
	assert.True(t, InRange[int8](big.NewInt(127)))
	assert.False(t, InRange[int8](big.NewInt(128)))
	assert.True(t, InRange[int64](IntegerToBig(int64(-1)<<63)))
	assert.True(t, InRange[uint64](new(big.Int).SetUint64(1<<64-1)))
	assert.False(t, InRange[uint64](new(big.Int).Lsh(big.NewInt(1), 64)))
}

func TestToBytes(t *testing.T) {
	for _, tc := range []struct {
		in       interface{}
		expected []byte
	}{
		{[]byte{1, 2}, []byte{1, 2}},
		{"hi", []byte("hi")},
		{[]interface{}{json.Number("1"), 2, uint64(255)}, []byte{1, 2, 255}},
		{NewObject("hex", "0a0b"), []byte{10, 11}},
		{NewObject("base64", "AQI="), []byte{1, 2}},
		{NewObject("base58", "5"), []byte{4}},
		{map[string]interface{}{"utf8": "ok"}, []byte("ok")},
	} {
		b, err := ToBytes(tc.in)
		require.NoError(t, err, "%v", tc.in)
		assert.Equal(t, tc.expected, b)
	}

	for _, in := range []interface{}{
		[]interface{}{256},
		NewObject("hex", "zz"),
		NewObject("rot13", "x"),
		NewObject("hex", "00", "utf8", "a"),
		3.5,
	} {
		_, err := ToBytes(in)
		assert.Error(t, err, "%v", in)
	}
}

func TestToAddress(t *testing.T) {
	address, err := ToAddress("11111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 32), []byte(address))

	_, err = ToAddress("1111")
	assert.Error(t, err)

	_, err = ToAddress("0OIl")
	assert.Error(t, err)
}

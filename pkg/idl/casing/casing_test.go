package casing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnake(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected string
	}{
		{"", ""},
		{"amount", "amount"},
		{"already_snake", "already_snake"},
		{"myField", "my_field"},
		{"MyAccount", "my_account"},
		{"withNum1234V1", "with_num1234_v1"},
		{"withKISS", "with_kiss"},
		{"HTTPServer", "http_server"},
		{"u64Value", "u64_value"},
		{"lastUpdatedSlot", "last_updated_slot"},
	} {
		assert.Equal(t, tc.expected, ToSnake(tc.in), tc.in)
	}
}

func TestToCamel(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected string
	}{
		{"", ""},
		{"amount", "amount"},
		{"my_field", "myField"},
		{"with_num1234_v1", "withNum1234V1"},
		{"last_updated_slot", "lastUpdatedSlot"},
		{"alreadyCamel", "alreadyCamel"},
		{"_private", "_private"},
	} {
		assert.Equal(t, tc.expected, ToCamel(tc.in), tc.in)
	}
}

func TestSnakeCamelRoundTrip(t *testing.T) {
	for _, name := range []string{"myField", "withNum1234V1", "lastUpdatedSlot", "a", "x1Y2"} {
		assert.Equal(t, name, ToCamel(ToSnake(name)))
	}
}

func TestGuessIntendedKey(t *testing.T) {
	keys := []string{"owner", "lastUpdatedSlot", "total_amount"}

	assert.Equal(t, "owner", GuessIntendedKey(keys, "owner"))
	assert.Equal(t, "lastUpdatedSlot", GuessIntendedKey(keys, "last_updated_slot"))
	assert.Equal(t, "lastUpdatedSlot", GuessIntendedKey(keys, "lastUpdatedSlot"))
	assert.Equal(t, "total_amount", GuessIntendedKey(keys, "totalAmount"))

	// No match falls through to the requested key
	assert.Equal(t, "missing_key", GuessIntendedKey(keys, "missing_key"))
	assert.Equal(t, "missingKey", GuessIntendedKey(nil, "missingKey"))
}

func TestGuessIntendedKey_PrefersVerbatim(t *testing.T) {
	keys := []string{"my_field", "myField"}

	assert.Equal(t, "my_field", GuessIntendedKey(keys, "my_field"))
	assert.Equal(t, "myField", GuessIntendedKey(keys, "myField"))
}

func TestGuessIntendedKey_Acronyms(t *testing.T) {
	keys := []string{"withKISS", "HTTPServer", "with_num1234_v1"}

	assert.Equal(t, "withKISS", GuessIntendedKey(keys, "with_kiss"))
	assert.Equal(t, "HTTPServer", GuessIntendedKey(keys, "http_server"))
	assert.Equal(t, "with_num1234_v1", GuessIntendedKey(keys, "withNum1234V1"))

	assert.Equal(t, "with_kiss", GuessIntendedKey([]string{"with_kiss"}, "withKISS"))
	assert.Equal(t, "with_kiss", GuessIntendedKeyFunc(func(string) bool { return false }, nil, "with_kiss"))
}

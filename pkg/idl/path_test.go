package idl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-idl/pkg/idl/value"
)

func TestWalkValue(t *testing.T) {
	state := value.NewObject(
		"config", value.NewObject(
			"owners", []interface{}{value.NewObject("key", "a"), value.NewObject("key", "b")},
			"closeAuthority", nil,
		),
	)

	for _, tc := range []struct {
		path     string
		expected interface{}
	}{
		{"config.owners[1].key", "b"},
		{"config.owners.0.key", "a"},
		{"config.close_authority", nil},
	} {
		segments, err := parsePath(tc.path)
		require.NoError(t, err, tc.path)

		v, err := walkValue(state, segments)
		require.NoError(t, err, tc.path)
		assert.Equal(t, tc.expected, v, tc.path)
	}

	segments, err := parsePath("config.missing")
	require.NoError(t, err)
	_, err = walkValue(state, segments)
	assert.EqualError(t, err, `no field "missing"`)
}

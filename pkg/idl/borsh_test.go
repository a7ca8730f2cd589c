package idl

import (
	"bytes"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/near/borsh-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-idl/pkg/idl/value"
)

type borshColor borsh.Enum

const (
	borshRed borshColor = iota
	borshGreen
	borshBlue
)

type borshSample struct {
	Flag    bool
	Small   uint8
	Medium  uint16
	Large   uint64
	Signed  int32
	Label   string
	Owner   [32]byte
	Points  []uint16
	Trailer [3]uint8
	Limit   *uint32
	Color   borshColor
}

const borshSampleTypedefs = `{
	"name": "Sample",
	"type": {"kind": "struct", "fields": [
		{"name": "flag", "type": "bool"},
		{"name": "small", "type": "u8"},
		{"name": "medium", "type": "u16"},
		{"name": "large", "type": "u64"},
		{"name": "signed", "type": "i32"},
		{"name": "label", "type": "string"},
		{"name": "owner", "type": "pubkey"},
		{"name": "points", "type": {"vec": "u16"}},
		{"name": "trailer", "type": {"array": ["u8", 3]}},
		{"name": "limit", "type": {"option": "u32"}},
		{"name": "color", "type": {"defined": "Color"}}
	]}
}, {
	"name": "Color",
	"type": {"kind": "enum", "variants": [{"name": "Red"}, {"name": "Green"}, {"name": "Blue"}]}
}`

// Cross-checks the codec against an independent Borsh implementation.
func TestCodec_MatchesBorsh(t *testing.T) {
	full := resolveType(t, `{"defined": "Sample"}`, borshSampleTypedefs)

	limit := uint32(9)
	owner := [32]byte{}
	copy(owner[:], bytes.Repeat([]byte{4}, 32))

	for _, tc := range []struct {
		name   string
		sample borshSample
		json   string
	}{
		{
			name: "populated",
			sample: borshSample{
				Flag:    true,
				Small:   200,
				Medium:  0xbeef,
				Large:   1 << 40,
				Signed:  -12,
				Label:   "idl",
				Owner:   owner,
				Points:  []uint16{1, 2, 3},
				Trailer: [3]uint8{7, 8, 9},
				Limit:   &limit,
				Color:   borshBlue,
			},
			json: `{
				"flag": true, "small": 200, "medium": 48879, "large": 1099511627776,
				"signed": -12, "label": "idl", "owner": "` + base58.Encode(owner[:]) + `",
				"points": [1, 2, 3], "trailer": [7, 8, 9], "limit": 9, "color": "Blue"
			}`,
		},
		{
			name: "empty",
			// borsh-go decodes an empty vec to a nil slice.
			sample: borshSample{
				Color: borshRed,
			},
			json: `{
				"flag": false, "small": 0, "medium": 0, "large": 0, "signed": 0,
				"label": "", "owner": "11111111111111111111111111111111",
				"points": [], "trailer": [0, 0, 0], "limit": null, "color": "Red"
			}`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			expected, err := borsh.Serialize(tc.sample)
			require.NoError(t, err)

			v, err := value.ParseJSON([]byte(tc.json))
			require.NoError(t, err)

			encoded, err := Encode(full, v)
			require.NoError(t, err)
			assert.Equal(t, expected, encoded)

			decoded, n, err := Decode(full, expected)
			require.NoError(t, err)
			assert.Equal(t, len(expected), n)

			reencoded, err := Encode(full, decoded)
			require.NoError(t, err)
			assert.Equal(t, expected, reencoded)

			var actual borshSample
			require.NoError(t, borsh.Deserialize(&actual, encoded))
			assert.Equal(t, tc.sample, actual)
		})
	}
}

package binary

import (
	"crypto/ed25519"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGet(t *testing.T) {
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	key[0], key[31] = 1, 2

	var buf []byte
	buf = PutUint8(buf, 0xab)
	buf = PutUint16(buf, 0x0102)
	buf = PutUint32(buf, 0x01020304)
	buf = PutUint64(buf, 0x0102030405060708)
	buf = PutUint128(buf, 1, 2)
	buf = PutKey32(buf, key)
	buf = PutUint(buf, 7, 2)

	assert.Equal(t, []byte{0xab, 0x02, 0x01, 0x04, 0x03, 0x02, 0x01}, buf[:7])
	require.Len(t, buf, 1+2+4+8+16+32+2)

	var offset int
	var u8 uint8
	var u16 uint16
	var u32 uint32
	var u64, lo, hi, generic uint64
	var k ed25519.PublicKey

	require.NoError(t, GetUint8(buf, &u8, &offset))
	require.NoError(t, GetUint16(buf, &u16, &offset))
	require.NoError(t, GetUint32(buf, &u32, &offset))
	require.NoError(t, GetUint64(buf, &u64, &offset))
	require.NoError(t, GetUint128(buf, &lo, &hi, &offset))
	require.NoError(t, GetKey32(buf, &k, &offset))
	require.NoError(t, GetUint(buf, &generic, 2, &offset))

	assert.EqualValues(t, 0xab, u8)
	assert.EqualValues(t, 0x0102, u16)
	assert.EqualValues(t, 0x01020304, u32)
	assert.EqualValues(t, uint64(0x0102030405060708), u64)
	assert.EqualValues(t, 1, lo)
	assert.EqualValues(t, 2, hi)
	assert.Equal(t, key, k)
	assert.EqualValues(t, 7, generic)
	assert.Equal(t, len(buf), offset)
}

func TestGet_Insufficient(t *testing.T) {
	src := []byte{1, 2, 3}

	offset := 2
	var u16 uint16
	err := GetUint16(src, &u16, &offset)
	assert.True(t, errors.Is(err, ErrInsufficientData))
	assert.Equal(t, 2, offset)

	var b []byte
	offset = 0
	assert.Error(t, GetBytes(src, &b, 4, &offset))
	require.NoError(t, GetBytes(src, &b, 3, &offset))
	assert.Equal(t, src, b)

	var k ed25519.PublicKey
	offset = 0
	assert.Error(t, GetKey32(src, &k, &offset))
}

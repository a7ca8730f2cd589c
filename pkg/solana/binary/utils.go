// Package binary provides little-endian helpers for Solana account and
// instruction layouts. Put* functions append to a buffer, Get* functions read
// at an offset and advance it, failing instead of panicking on short input.
package binary

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"
)

var ErrInsufficientData = errors.New("insufficient data")

func PutKey32(dst []byte, src ed25519.PublicKey) []byte {
	var key [ed25519.PublicKeySize]byte
	copy(key[:], src)
	return append(dst, key[:]...)
}

func PutUint8(dst []byte, v uint8) []byte {
	return append(dst, v)
}

func PutUint16(dst []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(dst, v)
}

func PutUint32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

func PutUint64(dst []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, v)
}

// PutUint128 appends a 128-bit value given as its low and high 64-bit halves.
func PutUint128(dst []byte, lo, hi uint64) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, lo)
	return binary.LittleEndian.AppendUint64(dst, hi)
}

// PutUint appends the low size bytes of v, for size in {1, 2, 4, 8}.
func PutUint(dst []byte, v uint64, size int) []byte {
	switch size {
	case 1:
		return PutUint8(dst, uint8(v))
	case 2:
		return PutUint16(dst, uint16(v))
	case 4:
		return PutUint32(dst, uint32(v))
	default:
		return PutUint64(dst, v)
	}
}

// Remaining reports whether n bytes can be read from src at offset.
func Remaining(src []byte, offset int, n int) error {
	if offset < 0 || n < 0 || offset+n > len(src) {
		return errors.Wrapf(ErrInsufficientData, "need %d bytes at offset %d, have %d", n, offset, len(src)-offset)
	}
	return nil
}

func GetKey32(src []byte, dst *ed25519.PublicKey, offset *int) error {
	if err := Remaining(src, *offset, ed25519.PublicKeySize); err != nil {
		return err
	}
	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, src[*offset:])
	*offset += ed25519.PublicKeySize
	return nil
}

func GetUint8(src []byte, dst *uint8, offset *int) error {
	if err := Remaining(src, *offset, 1); err != nil {
		return err
	}
	*dst = src[*offset]
	*offset += 1
	return nil
}

func GetUint16(src []byte, dst *uint16, offset *int) error {
	if err := Remaining(src, *offset, 2); err != nil {
		return err
	}
	*dst = binary.LittleEndian.Uint16(src[*offset:])
	*offset += 2
	return nil
}

func GetUint32(src []byte, dst *uint32, offset *int) error {
	if err := Remaining(src, *offset, 4); err != nil {
		return err
	}
	*dst = binary.LittleEndian.Uint32(src[*offset:])
	*offset += 4
	return nil
}

func GetUint64(src []byte, dst *uint64, offset *int) error {
	if err := Remaining(src, *offset, 8); err != nil {
		return err
	}
	*dst = binary.LittleEndian.Uint64(src[*offset:])
	*offset += 8
	return nil
}

// GetUint128 reads a 128-bit value as its low and high 64-bit halves.
func GetUint128(src []byte, lo, hi *uint64, offset *int) error {
	if err := Remaining(src, *offset, 16); err != nil {
		return err
	}
	*lo = binary.LittleEndian.Uint64(src[*offset:])
	*hi = binary.LittleEndian.Uint64(src[*offset+8:])
	*offset += 16
	return nil
}

// GetUint reads size bytes as an unsigned integer, for size in {1, 2, 4, 8}.
func GetUint(src []byte, dst *uint64, size int, offset *int) error {
	switch size {
	case 1:
		var v uint8
		err := GetUint8(src, &v, offset)
		*dst = uint64(v)
		return err
	case 2:
		var v uint16
		err := GetUint16(src, &v, offset)
		*dst = uint64(v)
		return err
	case 4:
		var v uint32
		err := GetUint32(src, &v, offset)
		*dst = uint64(v)
		return err
	default:
		return GetUint64(src, dst, offset)
	}
}

// GetBytes reads n raw bytes. The returned slice is a copy.
func GetBytes(src []byte, dst *[]byte, n int, offset *int) error {
	if err := Remaining(src, *offset, n); err != nil {
		return err
	}
	*dst = make([]byte, n)
	copy(*dst, src[*offset:*offset+n])
	*offset += n
	return nil
}

package idl

import (
	"crypto/ed25519"
)

// Primitive is a fixed-size scalar type.
type Primitive uint8

const (
	PrimitiveU8 Primitive = iota
	PrimitiveU16
	PrimitiveU32
	PrimitiveU64
	PrimitiveU128
	PrimitiveI8
	PrimitiveI16
	PrimitiveI32
	PrimitiveI64
	PrimitiveI128
	PrimitiveF32
	PrimitiveF64
	PrimitiveBool
	PrimitivePubkey
)

var primitiveNames = map[Primitive]string{
	PrimitiveU8:     "u8",
	PrimitiveU16:    "u16",
	PrimitiveU32:    "u32",
	PrimitiveU64:    "u64",
	PrimitiveU128:   "u128",
	PrimitiveI8:     "i8",
	PrimitiveI16:    "i16",
	PrimitiveI32:    "i32",
	PrimitiveI64:    "i64",
	PrimitiveI128:   "i128",
	PrimitiveF32:    "f32",
	PrimitiveF64:    "f64",
	PrimitiveBool:   "bool",
	PrimitivePubkey: "pubkey",
}

var primitivesByName = map[string]Primitive{
	"u8":        PrimitiveU8,
	"u16":       PrimitiveU16,
	"u32":       PrimitiveU32,
	"u64":       PrimitiveU64,
	"u128":      PrimitiveU128,
	"i8":        PrimitiveI8,
	"i16":       PrimitiveI16,
	"i32":       PrimitiveI32,
	"i64":       PrimitiveI64,
	"i128":      PrimitiveI128,
	"f32":       PrimitiveF32,
	"f64":       PrimitiveF64,
	"bool":      PrimitiveBool,
	"pubkey":    PrimitivePubkey,
	"publicKey": PrimitivePubkey,
	"address":   PrimitivePubkey,
}

// ParsePrimitive maps a schema type name to a Primitive.
func ParsePrimitive(name string) (Primitive, bool) {
	p, ok := primitivesByName[name]
	return p, ok
}

func (p Primitive) String() string {
	if name, ok := primitiveNames[p]; ok {
		return name
	}
	return "unknown"
}

// Size is the encoded size in bytes.
func (p Primitive) Size() int {
	switch p {
	case PrimitiveU8, PrimitiveI8, PrimitiveBool:
		return 1
	case PrimitiveU16, PrimitiveI16:
		return 2
	case PrimitiveU32, PrimitiveI32, PrimitiveF32:
		return 4
	case PrimitiveU64, PrimitiveI64, PrimitiveF64:
		return 8
	case PrimitiveU128, PrimitiveI128:
		return 16
	case PrimitivePubkey:
		return ed25519.PublicKeySize
	default:
		return 0
	}
}

// Alignment is the C layout alignment on the SBF target, where 128-bit
// integers are 8-byte aligned.
func (p Primitive) Alignment() int {
	switch p {
	case PrimitiveU128, PrimitiveI128:
		return 8
	case PrimitivePubkey:
		return 1
	default:
		return p.Size()
	}
}

// IsSigned reports whether p is a signed integer.
func (p Primitive) IsSigned() bool {
	switch p {
	case PrimitiveI8, PrimitiveI16, PrimitiveI32, PrimitiveI64, PrimitiveI128:
		return true
	default:
		return false
	}
}

// IsInteger reports whether p is a signed or unsigned integer.
func (p Primitive) IsInteger() bool {
	return p <= PrimitiveI128
}

// Prefix is the byte width of a length, presence or discriminant prefix.
type Prefix uint8

const (
	PrefixU8  Prefix = 1
	PrefixU16 Prefix = 2
	PrefixU32 Prefix = 4
	PrefixU64 Prefix = 8
)

// Size is the encoded prefix width in bytes.
func (p Prefix) Size() int {
	return int(p)
}

// Max is the largest value the prefix can hold.
func (p Prefix) Max() uint64 {
	if p >= PrefixU64 {
		return ^uint64(0)
	}
	return 1<<(8*uint(p)) - 1
}

func (p Prefix) String() string {
	switch p {
	case PrefixU8:
		return "u8"
	case PrefixU16:
		return "u16"
	case PrefixU32:
		return "u32"
	case PrefixU64:
		return "u64"
	default:
		return "invalid"
	}
}

func parsePrefix(name string) (Prefix, bool) {
	switch name {
	case "u8", "8":
		return PrefixU8, true
	case "u16", "16":
		return PrefixU16, true
	case "u32", "32":
		return PrefixU32, true
	case "u64", "64":
		return PrefixU64, true
	default:
		return 0, false
	}
}

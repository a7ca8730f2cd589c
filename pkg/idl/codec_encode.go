package idl

import (
	"fmt"
	"math"
	"math/big"

	"github.com/code-payments/code-idl/pkg/idl/value"
	"github.com/code-payments/code-idl/pkg/solana/binary"
)

var (
	two128  = new(big.Int).Lsh(big.NewInt(1), 128)
	mask64  = new(big.Int).SetUint64(math.MaxUint64)
	minI128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	maxI128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	maxU128 = new(big.Int).Sub(two128, big.NewInt(1))
)

// Encode serializes v according to t. Nothing is returned unless the whole
// value encodes.
func Encode(t FullType, v interface{}, opts ...CodecOption) ([]byte, error) {
	e := &encoder{opts: newCodecOptions(opts)}
	if err := e.encode(t, v, rootPath, 0); err != nil {
		return nil, err
	}
	return e.buf, nil
}

type encoder struct {
	buf   []byte
	opts  codecOptions
	depth int
}

func (e *encoder) zeros(n int) {
	for i := 0; i < n; i++ {
		e.buf = append(e.buf, 0)
	}
}

func (e *encoder) encode(t FullType, v interface{}, path valuePath, structStart int) error {
	switch typed := t.(type) {
	case FullPrimitive:
		return e.encodePrimitive(typed.Primitive, v, path)
	case FullString:
		s, ok := v.(string)
		if !ok {
			return invalidValue(path, "expected a string, got %T", v)
		}
		return e.encodeSized(typed.Prefix, []byte(s), path)
	case FullBytes:
		b, err := value.ToBytes(v)
		if err != nil {
			return invalidValue(path, "%v", err)
		}
		return e.encodeSized(typed.Prefix, b, path)
	case FullOption:
		if v == nil {
			e.buf = binary.PutUint(e.buf, 0, typed.Prefix.Size())
			if typed.Fixed {
				size, err := fixedSize(typed.Content)
				if err != nil {
					return invalidValue(path, "%v", err)
				}
				e.zeros(size)
			}
			return nil
		}
		e.buf = binary.PutUint(e.buf, 1, typed.Prefix.Size())
		return e.encode(typed.Content, v, path, structStart)
	case FullVec:
		items, err := toItems(typed.Items, v)
		if err != nil {
			return invalidValue(path, "%v", err)
		}
		if uint64(len(items)) > typed.Prefix.Max() {
			return invalidValue(path, "%d items do not fit a %s length", len(items), typed.Prefix)
		}
		e.buf = binary.PutUint(e.buf, uint64(len(items)), typed.Prefix.Size())
		return e.encodeItems(typed.Items, items, path)
	case FullArray:
		items, err := toItems(typed.Items, v)
		if err != nil {
			return invalidValue(path, "%v", err)
		}
		if len(items) != typed.Length {
			return invalidValue(path, "expected %d items, got %d", typed.Length, len(items))
		}
		return e.encodeItems(typed.Items, items, path)
	case FullStruct:
		return e.encodeFields(typed.Fields, v, path)
	case FullEnum:
		return e.encodeEnum(typed, v, path)
	case FullPad:
		e.zeros(typed.Size)
		return nil
	case FullBlob:
		if typed.Offset != nil {
			target := structStart + *typed.Offset
			if len(e.buf) > target {
				return invalidValue(path, "blob offset %d is behind the current position", *typed.Offset)
			}
			e.zeros(target - len(e.buf))
		}
		e.buf = append(e.buf, typed.Bytes...)
		return nil
	case FullLoop:
		items, err := toItems(typed.Items, v)
		if err != nil {
			return invalidValue(path, "%v", err)
		}
		if err := e.encodeItems(typed.Items, items, path); err != nil {
			return err
		}
		e.buf = append(e.buf, typed.Stop...)
		return nil
	case FullPadded:
		e.zeros(typed.Before)
		start := len(e.buf)
		if err := e.encode(typed.Content, v, path, structStart); err != nil {
			return err
		}
		if written := len(e.buf) - start; written < typed.MinSize {
			e.zeros(typed.MinSize - written)
		}
		e.zeros(typed.After)
		return nil
	case *FullTypedef:
		if typed.Content == nil {
			return invalidValue(path, "%v: %s", ErrUnresolvedType, typed.Name)
		}
		if e.depth >= maxCodecDepth {
			return invalidValue(path, "%v", ErrMaxDepthReached)
		}
		e.depth++
		defer func() { e.depth-- }()
		return e.encode(typed.Content, v, path, structStart)
	default:
		return invalidValue(path, "unsupported type %T", t)
	}
}

func (e *encoder) encodeSized(prefix Prefix, b []byte, path valuePath) error {
	if uint64(len(b)) > prefix.Max() {
		return invalidValue(path, "%d bytes do not fit a %s length", len(b), prefix)
	}
	e.buf = binary.PutUint(e.buf, uint64(len(b)), prefix.Size())
	e.buf = append(e.buf, b...)
	return nil
}

func (e *encoder) encodeItems(items FullType, values []interface{}, path valuePath) error {
	for i, item := range values {
		if err := e.encode(items, item, path.index(i), len(e.buf)); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) encodePrimitive(p Primitive, v interface{}, path valuePath) error {
	switch p {
	case PrimitiveF32:
		f, err := value.ToFloat64(v)
		if err != nil {
			return invalidValue(path, "%v", err)
		}
		e.buf = binary.PutUint32(e.buf, math.Float32bits(float32(f)))
		return nil
	case PrimitiveF64:
		f, err := value.ToFloat64(v)
		if err != nil {
			return invalidValue(path, "%v", err)
		}
		e.buf = binary.PutUint64(e.buf, math.Float64bits(f))
		return nil
	case PrimitiveBool:
		b, err := value.ToBool(v)
		if err != nil {
			return invalidValue(path, "%v", err)
		}
		if b {
			e.buf = append(e.buf, 1)
		} else {
			e.buf = append(e.buf, 0)
		}
		return nil
	case PrimitivePubkey:
		key, err := value.ToAddress(v)
		if err != nil {
			return invalidValue(path, "%v", err)
		}
		e.buf = binary.PutKey32(e.buf, key)
		return nil
	}

	n, err := value.ToBigInt(v)
	if err != nil {
		return invalidValue(path, "%v", err)
	}
	if !integerInRange(p, n) {
		return invalidValue(path, "%s out of range for %s", n, p)
	}

	if p == PrimitiveU128 || p == PrimitiveI128 {
		m := new(big.Int).Set(n)
		if m.Sign() < 0 {
			m.Add(m, two128)
		}
		lo := new(big.Int).And(m, mask64).Uint64()
		hi := new(big.Int).Rsh(m, 64).Uint64()
		e.buf = binary.PutUint128(e.buf, lo, hi)
		return nil
	}

	var u uint64
	if n.Sign() < 0 {
		u = uint64(n.Int64())
	} else {
		u = n.Uint64()
	}
	e.buf = binary.PutUint(e.buf, u, p.Size())
	return nil
}

func integerInRange(p Primitive, n *big.Int) bool {
	switch p {
	case PrimitiveU8:
		return value.InRange[uint8](n)
	case PrimitiveU16:
		return value.InRange[uint16](n)
	case PrimitiveU32:
		return value.InRange[uint32](n)
	case PrimitiveU64:
		return value.InRange[uint64](n)
	case PrimitiveI8:
		return value.InRange[int8](n)
	case PrimitiveI16:
		return value.InRange[int16](n)
	case PrimitiveI32:
		return value.InRange[int32](n)
	case PrimitiveI64:
		return value.InRange[int64](n)
	case PrimitiveU128:
		return n.Sign() >= 0 && n.Cmp(maxU128) <= 0
	case PrimitiveI128:
		return n.Cmp(minI128) >= 0 && n.Cmp(maxI128) <= 0
	default:
		return false
	}
}

// encodeFields writes fields in declaration order. Named fields are looked up
// with casing guessing; value-less fields take no input; a missing option is
// written as absent.
func (e *encoder) encodeFields(fields FullFields, v interface{}, path valuePath) error {
	start := len(e.buf)

	if !fields.Named {
		count := fields.valueCount()
		var items []interface{}
		if count > 0 {
			var ok bool
			items, ok = value.Normalize(v).([]interface{})
			if !ok {
				return invalidValue(path, "expected an array of %d items, got %T", count, v)
			}
			if len(items) != count {
				return invalidValue(path, "expected %d items, got %d", count, len(items))
			}
		}

		var i int
		for _, field := range fields.Fields {
			if IsValueless(field.Type) {
				if err := e.encode(field.Type, nil, path, start); err != nil {
					return err
				}
				continue
			}
			if err := e.encode(field.Type, items[i], path.index(i), start); err != nil {
				return err
			}
			i++
		}
		return nil
	}

	var obj *value.Object
	switch typed := value.Normalize(v).(type) {
	case *value.Object:
		obj = typed
	case nil:
		obj = value.NewObject()
	default:
		return invalidValue(path, "expected an object, got %T", v)
	}

	for _, field := range fields.Fields {
		if IsValueless(field.Type) {
			if err := e.encode(field.Type, nil, path, start); err != nil {
				return err
			}
			continue
		}

		_, fieldValue, ok := obj.Lookup(field.Name)
		if !ok {
			if _, isOption := Unwrap(field.Type).(FullOption); !isOption {
				return &MissingFieldError{Path: string(path), Field: field.Name}
			}
		}
		if err := e.encode(field.Type, fieldValue, path.field(field.Name), start); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) encodeEnum(t FullEnum, v interface{}, path valuePath) error {
	index, payload, err := matchVariant(t, v, path)
	if err != nil {
		return err
	}
	variant := t.Variants[index]

	e.buf = binary.PutUint(e.buf, variant.Code, t.Prefix.Size())
	e.zeros(t.TagPadding)

	start := len(e.buf)
	if len(variant.Fields.Fields) > 0 {
		if err := e.encodeFields(variant.Fields, payload, path.field(variant.Name)); err != nil {
			return err
		}
	}

	if t.Stride > 0 {
		written := len(e.buf) - start
		if written > t.Stride {
			return invalidValue(path, "variant %q payload is %d bytes, stride is %d", variant.Name, written, t.Stride)
		}
		e.zeros(t.Stride - written)
	}
	return nil
}

// matchVariant selects a variant by exact name, then by numeric key, then by
// a bare numeric code. Object values carry the variant payload under the
// variant key.
func matchVariant(t FullEnum, v interface{}, path valuePath) (int, interface{}, error) {
	byKey := func(key string) (int, bool) {
		if i, ok := t.VariantByName(key); ok {
			return i, true
		}
		return t.VariantByCodeString(key)
	}

	switch typed := value.Normalize(v).(type) {
	case string:
		if i, ok := byKey(typed); ok {
			return i, nil, nil
		}
	case *value.Object:
		if typed.Len() == 1 {
			key := typed.Keys()[0]
			if i, ok := byKey(key); ok {
				payload, _ := typed.Get(key)
				return i, payload, nil
			}
		}
		return 0, nil, &UnknownVariantError{Path: string(path), Variant: fmt.Sprintf("%v", typed.Keys())}
	default:
		if n, err := value.ToBigInt(typed); err == nil && n.IsUint64() {
			if i, ok := t.VariantByCode(n.Uint64()); ok {
				return i, nil, nil
			}
		}
	}
	return 0, nil, &UnknownVariantError{Path: string(path), Variant: fmt.Sprintf("%v", v)}
}

// toItems accepts an array value. Byte-like values are accepted for u8 items.
func toItems(items FullType, v interface{}) ([]interface{}, error) {
	if arr, ok := v.([]interface{}); ok {
		return arr, nil
	}

	if p, ok := Unwrap(items).(FullPrimitive); ok && p.Primitive == PrimitiveU8 {
		b, err := value.ToBytes(v)
		if err != nil {
			return nil, err
		}
		out := make([]interface{}, len(b))
		for i, x := range b {
			out[i] = uint64(x)
		}
		return out, nil
	}

	return nil, fmt.Errorf("expected an array, got %T", v)
}

func invalidValue(path valuePath, format string, args ...interface{}) error {
	return &InvalidValueError{Path: string(path), Message: fmt.Sprintf(format, args...)}
}

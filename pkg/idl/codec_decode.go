package idl

import (
	"bytes"
	"math"
	"math/big"
	"strconv"
	"unicode/utf8"

	"github.com/mr-tron/base58"

	"github.com/code-payments/code-idl/pkg/idl/value"
	"github.com/code-payments/code-idl/pkg/solana/binary"
)

// Decode reads one value of type t from the start of data. It returns the
// value and the number of bytes consumed; trailing bytes are not an error.
//
// Unsigned integers up to 64 bits decode to uint64, signed ones to int64 and
// 128-bit integers to *big.Int. Public keys decode to base58 strings, named
// structs to *value.Object and unnamed structs to []interface{}.
func Decode(t FullType, data []byte, opts ...CodecOption) (interface{}, int, error) {
	d := &decoder{data: data, opts: newCodecOptions(opts)}

	var offset int
	v, err := d.decode(t, &offset, rootPath, 0)
	if err != nil {
		return nil, 0, err
	}
	return v, offset, nil
}

type decoder struct {
	data  []byte
	opts  codecOptions
	depth int
}

func (d *decoder) need(offset int, n int, path valuePath) error {
	if n < 0 || offset+n > len(d.data) {
		return &TruncatedDataError{
			Path:      string(path),
			Offset:    offset,
			Needed:    n,
			Remaining: len(d.data) - offset,
		}
	}
	return nil
}

func (d *decoder) skip(offset *int, n int, path valuePath) error {
	if err := d.need(*offset, n, path); err != nil {
		return err
	}
	*offset += n
	return nil
}

func (d *decoder) readUint(offset *int, size int, path valuePath) (uint64, error) {
	if err := d.need(*offset, size, path); err != nil {
		return 0, err
	}
	var v uint64
	if err := binary.GetUint(d.data, &v, size, offset); err != nil {
		return 0, err
	}
	return v, nil
}

func (d *decoder) readBytes(offset *int, n int, path valuePath) ([]byte, error) {
	if err := d.need(*offset, n, path); err != nil {
		return nil, err
	}
	var b []byte
	if err := binary.GetBytes(d.data, &b, n, offset); err != nil {
		return nil, err
	}
	return b, nil
}

func (d *decoder) readLength(offset *int, prefix Prefix, path valuePath) (int, error) {
	n, err := d.readUint(offset, prefix.Size(), path)
	if err != nil {
		return 0, err
	}
	if n > uint64(len(d.data)) {
		return 0, &TruncatedDataError{Path: string(path), Offset: *offset, Needed: int(min(n, math.MaxInt32)), Remaining: len(d.data) - *offset}
	}
	return int(n), nil
}

func (d *decoder) decode(t FullType, offset *int, path valuePath, structStart int) (interface{}, error) {
	switch typed := t.(type) {
	case FullPrimitive:
		return d.decodePrimitive(typed.Primitive, offset, path)
	case FullString:
		n, err := d.readLength(offset, typed.Prefix, path)
		if err != nil {
			return nil, err
		}
		b, err := d.readBytes(offset, n, path)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(b) {
			return nil, invalidValue(path, "string is not valid utf-8")
		}
		return string(b), nil
	case FullBytes:
		n, err := d.readLength(offset, typed.Prefix, path)
		if err != nil {
			return nil, err
		}
		return d.readBytes(offset, n, path)
	case FullOption:
		tag, err := d.readUint(offset, typed.Prefix.Size(), path)
		if err != nil {
			return nil, err
		}
		switch tag {
		case 0:
			if typed.Fixed {
				size, err := fixedSize(typed.Content)
				if err != nil {
					return nil, invalidValue(path, "%v", err)
				}
				if err := d.skip(offset, size, path); err != nil {
					return nil, err
				}
			}
			return nil, nil
		case 1:
			return d.decode(typed.Content, offset, path, structStart)
		default:
			return nil, invalidValue(path, "invalid option tag %d", tag)
		}
	case FullVec:
		n, err := d.readLength(offset, typed.Prefix, path)
		if err != nil {
			return nil, err
		}
		if n > len(d.data)-*offset {
			if size, err := fixedSize(typed.Items); err != nil || size > 0 {
				return nil, &TruncatedDataError{Path: string(path), Offset: *offset, Needed: n, Remaining: len(d.data) - *offset}
			}
		}
		return d.decodeItems(typed.Items, n, offset, path)
	case FullArray:
		return d.decodeItems(typed.Items, typed.Length, offset, path)
	case FullStruct:
		return d.decodeFields(typed.Fields, offset, path)
	case FullEnum:
		return d.decodeEnum(typed, offset, path)
	case FullPad:
		return nil, d.skip(offset, typed.Size, path)
	case FullBlob:
		if typed.Offset != nil {
			target := structStart + *typed.Offset
			if *offset > target {
				return nil, invalidValue(path, "blob offset %d is behind the current position", *typed.Offset)
			}
			if err := d.skip(offset, target-*offset, path); err != nil {
				return nil, err
			}
		}
		b, err := d.readBytes(offset, len(typed.Bytes), path)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(b, typed.Bytes) {
			return nil, invalidValue(path, "blob mismatch: expected %x, got %x", typed.Bytes, b)
		}
		return nil, nil
	case FullLoop:
		items := []interface{}{}
		for *offset < len(d.data) {
			start := *offset
			item, err := d.decode(typed.Items, offset, path.index(len(items)), start)
			if err != nil {
				return nil, err
			}
			if typed.Stop != nil && bytes.Equal(d.data[start:*offset], typed.Stop) {
				break
			}
			if *offset == start {
				return nil, invalidValue(path, "loop item consumed no bytes")
			}
			items = append(items, item)
		}
		return items, nil
	case FullPadded:
		if err := d.skip(offset, typed.Before, path); err != nil {
			return nil, err
		}
		start := *offset
		v, err := d.decode(typed.Content, offset, path, structStart)
		if err != nil {
			return nil, err
		}
		if read := *offset - start; read < typed.MinSize {
			if err := d.skip(offset, typed.MinSize-read, path); err != nil {
				return nil, err
			}
		}
		if err := d.skip(offset, typed.After, path); err != nil {
			return nil, err
		}
		return v, nil
	case *FullTypedef:
		if typed.Content == nil {
			return nil, invalidValue(path, "%v: %s", ErrUnresolvedType, typed.Name)
		}
		if d.depth >= maxCodecDepth {
			return nil, invalidValue(path, "%v", ErrMaxDepthReached)
		}
		d.depth++
		defer func() { d.depth-- }()
		return d.decode(typed.Content, offset, path, structStart)
	default:
		return nil, invalidValue(path, "unsupported type %T", t)
	}
}

func (d *decoder) decodeItems(items FullType, n int, offset *int, path valuePath) ([]interface{}, error) {
	out := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		item, err := d.decode(items, offset, path.index(i), *offset)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (d *decoder) decodePrimitive(p Primitive, offset *int, path valuePath) (interface{}, error) {
	if err := d.need(*offset, p.Size(), path); err != nil {
		return nil, err
	}

	switch p {
	case PrimitiveF32:
		u, _ := d.readUint(offset, 4, path)
		return float64(math.Float32frombits(uint32(u))), nil
	case PrimitiveF64:
		u, _ := d.readUint(offset, 8, path)
		return math.Float64frombits(u), nil
	case PrimitiveBool:
		u, _ := d.readUint(offset, 1, path)
		if u > 1 && d.opts.strictBool {
			return nil, invalidValue(path, "invalid boolean byte %d", u)
		}
		return u != 0, nil
	case PrimitivePubkey:
		b, _ := d.readBytes(offset, 32, path)
		return base58.Encode(b), nil
	case PrimitiveU128, PrimitiveI128:
		var lo, hi uint64
		if err := binary.GetUint128(d.data, &lo, &hi, offset); err != nil {
			return nil, err
		}
		n := new(big.Int).SetUint64(hi)
		n.Lsh(n, 64)
		n.Or(n, new(big.Int).SetUint64(lo))
		if p == PrimitiveI128 && hi>>63 == 1 {
			n.Sub(n, two128)
		}
		return n, nil
	}

	size := p.Size()
	u, _ := d.readUint(offset, size, path)
	if !p.IsSigned() {
		return u, nil
	}
	shift := uint(64 - 8*size)
	return int64(u<<shift) >> shift, nil
}

func (d *decoder) decodeFields(fields FullFields, offset *int, path valuePath) (interface{}, error) {
	start := *offset

	if !fields.Named && len(fields.Fields) > 0 {
		items := make([]interface{}, 0, fields.valueCount())
		for _, field := range fields.Fields {
			fieldPath := path.index(len(items))
			v, err := d.decode(field.Type, offset, fieldPath, start)
			if err != nil {
				return nil, err
			}
			if !IsValueless(field.Type) {
				items = append(items, v)
			}
		}
		return items, nil
	}

	obj := value.NewObject()
	for _, field := range fields.Fields {
		v, err := d.decode(field.Type, offset, path.field(field.Name), start)
		if err != nil {
			return nil, err
		}
		if !IsValueless(field.Type) {
			obj.Set(field.Name, v)
		}
	}
	return obj, nil
}

// decodeEnum returns the variant name for a variant without fields and a
// single-key object holding the payload otherwise.
func (d *decoder) decodeEnum(t FullEnum, offset *int, path valuePath) (interface{}, error) {
	code, err := d.readUint(offset, t.Prefix.Size(), path)
	if err != nil {
		return nil, err
	}
	index, ok := t.VariantByCode(code)
	if !ok {
		return nil, &UnknownVariantError{Path: string(path), Variant: strconv.FormatUint(code, 10)}
	}
	variant := t.Variants[index]

	if err := d.skip(offset, t.TagPadding, path); err != nil {
		return nil, err
	}

	start := *offset
	var result interface{} = variant.Name
	if len(variant.Fields.Fields) > 0 {
		payload, err := d.decodeFields(variant.Fields, offset, path.field(variant.Name))
		if err != nil {
			return nil, err
		}
		if variant.Fields.valueCount() > 0 {
			result = value.NewObject(variant.Name, payload)
		}
	}

	if t.Stride > 0 {
		read := *offset - start
		if read > t.Stride {
			return nil, invalidValue(path, "variant %q payload is %d bytes, stride is %d", variant.Name, read, t.Stride)
		}
		if err := d.skip(offset, t.Stride-read, path); err != nil {
			return nil, err
		}
	}
	return result, nil
}

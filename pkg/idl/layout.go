package idl

import (
	"github.com/pkg/errors"
)

var errNotFixedSize = errors.New("type does not have a fixed size")

// layoutC rewrites a typedef body with C alignment: pad fields between and
// after struct fields, a u32 enum discriminant unless one is declared, and
// enum payloads padded to a common stride.
func layoutC(content FullType, typedef *Typedef) (FullType, error) {
	fail := func(err error) error {
		return &TypeResolutionError{Typedef: typedef.Name, Message: "c layout: " + err.Error()}
	}

	minAlign := 1
	if typedef.Repr != nil && typedef.Repr.Align > 1 {
		minAlign = typedef.Repr.Align
	}

	switch t := content.(type) {
	case FullStruct:
		fields, _, err := layoutCFields(t.Fields, minAlign)
		if err != nil {
			return nil, fail(err)
		}
		return FullStruct{Fields: fields}, nil
	case FullEnum:
		prefix := t.Prefix
		if flatEnum, ok := typedef.Type.(FlatEnum); ok && flatEnum.Prefix == 0 {
			prefix = PrefixU32
		}
		laid, err := layoutCEnum(t, prefix, minAlign)
		if err != nil {
			return nil, fail(err)
		}
		return laid, nil
	default:
		return content, nil
	}
}

// layoutCFields inserts unnamed pad fields so every field sits at its
// alignment and the total size is a multiple of the struct alignment.
func layoutCFields(fields FullFields, minAlign int) (FullFields, int, error) {
	out := FullFields{Named: fields.Named}

	offset, align := 0, minAlign
	for _, field := range fields.Fields {
		fieldAlign, err := alignOf(field.Type)
		if err != nil {
			return FullFields{}, 0, errors.Wrapf(err, "field %q", field.Name)
		}
		fieldSize, err := fixedSize(field.Type)
		if err != nil {
			return FullFields{}, 0, errors.Wrapf(err, "field %q", field.Name)
		}

		if pad := roundUp(offset, fieldAlign) - offset; pad > 0 {
			out.Fields = append(out.Fields, FullField{Type: FullPad{Size: pad}})
			offset += pad
		}
		out.Fields = append(out.Fields, field)
		offset += fieldSize

		if fieldAlign > align {
			align = fieldAlign
		}
	}

	if pad := roundUp(offset, align) - offset; pad > 0 {
		out.Fields = append(out.Fields, FullField{Type: FullPad{Size: pad}})
		offset += pad
	}

	return out, offset, nil
}

func layoutCEnum(e FullEnum, prefix Prefix, minAlign int) (FullEnum, error) {
	unionAlign, maxPayload := minAlign, 0

	variants := make([]FullEnumVariant, len(e.Variants))
	for i, variant := range e.Variants {
		if variant.Code > prefix.Max() {
			return FullEnum{}, errors.Errorf("variant %q code %d does not fit in %s", variant.Name, variant.Code, prefix)
		}

		align, err := fieldsAlign(variant.Fields)
		if err != nil {
			return FullEnum{}, errors.Wrapf(err, "variant %q", variant.Name)
		}
		fields, size, err := layoutCFields(variant.Fields, 1)
		if err != nil {
			return FullEnum{}, errors.Wrapf(err, "variant %q", variant.Name)
		}

		variant.Fields = fields
		variants[i] = variant

		if align > unionAlign {
			unionAlign = align
		}
		if size > maxPayload {
			maxPayload = size
		}
	}

	tagSize := prefix.Size()
	tagPadding := 0
	if maxPayload > 0 {
		tagPadding = roundUp(tagSize, unionAlign) - tagSize
	}

	enumAlign := unionAlign
	if tagSize > enumAlign {
		enumAlign = tagSize
	}
	total := roundUp(tagSize+tagPadding+maxPayload, enumAlign)

	laid := NewFullEnum(prefix, variants)
	laid.TagPadding = tagPadding
	laid.Stride = total - tagSize - tagPadding
	return laid, nil
}

func fieldsAlign(fields FullFields) (int, error) {
	align := 1
	for _, field := range fields.Fields {
		fieldAlign, err := alignOf(field.Type)
		if err != nil {
			return 0, err
		}
		if fieldAlign > align {
			align = fieldAlign
		}
	}
	return align, nil
}

// alignOf is the C alignment of t.
func alignOf(t FullType) (int, error) {
	switch typed := t.(type) {
	case FullPrimitive:
		return typed.Primitive.Alignment(), nil
	case FullArray:
		return alignOf(typed.Items)
	case FullStruct:
		return fieldsAlign(typed.Fields)
	case FullEnum:
		align := typed.Prefix.Size()
		for _, variant := range typed.Variants {
			variantAlign, err := fieldsAlign(variant.Fields)
			if err != nil {
				return 0, err
			}
			if variantAlign > align {
				align = variantAlign
			}
		}
		return align, nil
	case FullOption:
		align, err := alignOf(typed.Content)
		if err != nil {
			return 0, err
		}
		if typed.Prefix.Size() > align {
			align = typed.Prefix.Size()
		}
		return align, nil
	case FullPadded:
		return alignOf(typed.Content)
	case FullPad, FullBlob:
		return 1, nil
	case *FullTypedef:
		if typed.Content == nil {
			return 0, errors.Wrapf(ErrUnresolvedType, "cyclic type %q", typed.Name)
		}
		return alignOf(typed.Content)
	default:
		return 0, errors.Wrapf(errNotFixedSize, "%T", t)
	}
}

// fixedSize is the encoded size of t when every value of t encodes to the
// same number of bytes.
func fixedSize(t FullType) (int, error) {
	switch typed := t.(type) {
	case FullPrimitive:
		return typed.Primitive.Size(), nil
	case FullArray:
		size, err := fixedSize(typed.Items)
		if err != nil {
			return 0, err
		}
		return size * typed.Length, nil
	case FullStruct:
		return fieldsSize(typed.Fields)
	case FullEnum:
		if typed.Stride > 0 || len(typed.Variants) == 0 {
			return typed.Prefix.Size() + typed.TagPadding + typed.Stride, nil
		}
		size := -1
		for _, variant := range typed.Variants {
			variantSize, err := fieldsSize(variant.Fields)
			if err != nil {
				return 0, err
			}
			if size >= 0 && variantSize != size {
				return 0, errors.Wrap(errNotFixedSize, "enum variants differ in size")
			}
			size = variantSize
		}
		return typed.Prefix.Size() + typed.TagPadding + size, nil
	case FullOption:
		if !typed.Fixed {
			return 0, errors.Wrap(errNotFixedSize, "option")
		}
		size, err := fixedSize(typed.Content)
		if err != nil {
			return 0, err
		}
		return typed.Prefix.Size() + size, nil
	case FullPad:
		return typed.Size, nil
	case FullBlob:
		return len(typed.Bytes), nil
	case FullPadded:
		size, err := fixedSize(typed.Content)
		if err != nil {
			return 0, err
		}
		if size < typed.MinSize {
			size = typed.MinSize
		}
		return typed.Before + size + typed.After, nil
	case *FullTypedef:
		if typed.Content == nil {
			return 0, errors.Wrapf(ErrUnresolvedType, "cyclic type %q", typed.Name)
		}
		return fixedSize(typed.Content)
	default:
		return 0, errors.Wrapf(errNotFixedSize, "%T", t)
	}
}

func fieldsSize(fields FullFields) (int, error) {
	var total int
	for _, field := range fields.Fields {
		size, err := fixedSize(field.Type)
		if err != nil {
			return 0, err
		}
		total += size
	}
	return total, nil
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}

package idl

import (
	"strconv"
	"strings"

	"github.com/code-payments/code-idl/pkg/idl/value"
)

var prefixedKeywords = map[string]Prefix{
	"8":  PrefixU8,
	"16": PrefixU16,
	"32": PrefixU32,
	"64": PrefixU64,
}

// typeKeys are the object keys that mark a type body.
var typeKeys = []string{
	"type", "kind", "fields", "variants", "alias", "defined", "generic",
	"option", "option8", "option16", "option32", "option64", "coption",
	"vec", "vec8", "vec16", "vec32", "vec64", "array", "tuple",
	"padded", "pad", "blob", "loop",
}

func hasTypeKeys(obj *value.Object) bool {
	_, _, ok := get(obj, typeKeys...)
	return ok
}

// parseType reads any type shorthand.
func parseType(v interface{}, ptr jsonPointer) (FlatType, error) {
	switch typed := v.(type) {
	case string:
		return parseTypeName(typed, ptr)
	case []interface{}:
		switch len(typed) {
		case 1:
			items, err := parseType(typed[0], ptr.index(0))
			if err != nil {
				return nil, err
			}
			return FlatVec{Prefix: PrefixU32, Items: items}, nil
		case 2:
			return parseArray(typed, ptr)
		default:
			return nil, schemaErrorf(ptr, "type arrays must be [T] or [T, N]")
		}
	case *value.Object:
		t, err := parseTypeObject(typed, ptr)
		if err != nil {
			return nil, err
		}
		return applyPrefix(t, typed, ptr)
	case nil:
		return nil, schemaErrorf(ptr, "missing type")
	default:
		return nil, schemaErrorf(ptr, "unsupported type of kind %T", v)
	}
}

func parseTypeName(name string, ptr jsonPointer) (FlatType, error) {
	if p, ok := ParsePrimitive(name); ok {
		return FlatPrimitive{Primitive: p}, nil
	}

	switch name {
	case "string":
		return FlatString{Prefix: PrefixU32}, nil
	case "bytes":
		return FlatBytes{Prefix: PrefixU32}, nil
	case "":
		return nil, schemaErrorf(ptr, "empty type name")
	}

	for _, kind := range []string{"string", "bytes"} {
		if prefix, ok := prefixedKeywords[strings.TrimPrefix(name, kind)]; ok && strings.HasPrefix(name, kind) {
			if kind == "string" {
				return FlatString{Prefix: prefix}, nil
			}
			return FlatBytes{Prefix: prefix}, nil
		}
	}

	return FlatDefined{Name: name}, nil
}

func parseArray(pair []interface{}, ptr jsonPointer) (FlatType, error) {
	items, err := parseType(pair[0], ptr.index(0))
	if err != nil {
		return nil, err
	}
	length, err := parseLength(pair[1], ptr.index(1))
	if err != nil {
		return nil, err
	}
	return FlatArray{Items: items, Length: length}, nil
}

// parseLength reads an array length: an integer, a generic symbol or a
// {generic} object.
func parseLength(v interface{}, ptr jsonPointer) (FlatType, error) {
	switch typed := v.(type) {
	case string:
		if n, err := strconv.Atoi(typed); err == nil {
			return FlatConst{Literal: n}, nil
		}
		return FlatGeneric{Symbol: typed}, nil
	case *value.Object:
		if symbol, ok, err := getString(typed, ptr, "generic"); err != nil || ok {
			return FlatGeneric{Symbol: symbol}, err
		}
		if n, ok, err := getInt(typed, ptr, "value"); err != nil || ok {
			return FlatConst{Literal: n}, err
		}
		return nil, schemaErrorf(ptr, "unsupported array length")
	default:
		n, err := toInt(v, ptr)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, schemaErrorf(ptr, "negative array length")
		}
		return FlatConst{Literal: n}, nil
	}
}

func parseTypeObject(obj *value.Object, ptr jsonPointer) (FlatType, error) {
	if kind, ok, err := getString(obj, ptr, "kind"); err != nil {
		return nil, err
	} else if ok {
		return parseKind(kind, obj, ptr)
	}

	if v, key, ok := get(obj, "defined"); ok {
		return parseDefined(v, ptr.key(key))
	}
	if symbol, ok, err := getString(obj, ptr, "generic"); err != nil || ok {
		return FlatGeneric{Symbol: symbol}, err
	}

	for _, key := range []string{"option", "option8", "option16", "option32", "option64", "coption"} {
		v, ok := obj.Get(key)
		if !ok {
			continue
		}
		content, err := parseType(v, ptr.key(key))
		if err != nil {
			return nil, err
		}
		switch key {
		case "coption":
			return FlatOption{Prefix: PrefixU32, Fixed: true, Content: content}, nil
		case "option":
			return FlatOption{Prefix: PrefixU8, Content: content}, nil
		default:
			return FlatOption{Prefix: prefixedKeywords[strings.TrimPrefix(key, "option")], Content: content}, nil
		}
	}

	for _, key := range []string{"vec", "vec8", "vec16", "vec32", "vec64"} {
		v, ok := obj.Get(key)
		if !ok {
			continue
		}
		items, err := parseType(v, ptr.key(key))
		if err != nil {
			return nil, err
		}
		prefix := PrefixU32
		if key != "vec" {
			prefix = prefixedKeywords[strings.TrimPrefix(key, "vec")]
		}
		return FlatVec{Prefix: prefix, Items: items}, nil
	}

	if v, ok := obj.Get("array"); ok {
		pair, err := toArray(v, ptr.key("array"))
		if err != nil {
			return nil, err
		}
		if len(pair) != 2 {
			return nil, schemaErrorf(ptr.key("array"), "array must be [T, N]")
		}
		return parseArray(pair, ptr.key("array"))
	}

	if v, ok := obj.Get("fields"); ok {
		fields, err := parseFields(v, ptr.key("fields"))
		if err != nil {
			return nil, err
		}
		return FlatStruct{Fields: fields}, nil
	}
	if v, ok := obj.Get("variants"); ok {
		variants, err := parseVariants(v, ptr.key("variants"))
		if err != nil {
			return nil, err
		}
		return FlatEnum{Variants: variants}, nil
	}
	if v, ok := obj.Get("tuple"); ok {
		items, err := toArray(v, ptr.key("tuple"))
		if err != nil {
			return nil, err
		}
		fields, err := parseUnnamedFields(items, ptr.key("tuple"))
		if err != nil {
			return nil, err
		}
		return FlatStruct{Fields: fields}, nil
	}

	if v, ok := obj.Get("padded"); ok {
		return parsePadded(v, ptr.key("padded"))
	}
	if v, ok := obj.Get("pad"); ok {
		size, err := toInt(v, ptr.key("pad"))
		if err != nil {
			return nil, err
		}
		return FlatPad{Size: size}, nil
	}
	if v, ok := obj.Get("blob"); ok {
		return parseBlob(v, obj, ptr)
	}
	if v, ok := obj.Get("loop"); ok {
		return parseLoop(v, ptr.key("loop"))
	}

	if v, key, ok := get(obj, "type", "alias"); ok {
		return parseType(v, ptr.key(key))
	}

	return nil, schemaErrorf(ptr, "unrecognized type object")
}

func parseKind(kind string, obj *value.Object, ptr jsonPointer) (FlatType, error) {
	switch kind {
	case "struct":
		v, _ := obj.Get("fields")
		fields, err := parseFields(v, ptr.key("fields"))
		if err != nil {
			return nil, err
		}
		return FlatStruct{Fields: fields}, nil
	case "enum":
		v, _ := obj.Get("variants")
		variants, err := parseVariants(v, ptr.key("variants"))
		if err != nil {
			return nil, err
		}
		return FlatEnum{Variants: variants}, nil
	case "alias", "type":
		v, key, ok := get(obj, "value", "alias", "type")
		if !ok {
			return nil, schemaErrorf(ptr, "%s kind without a type", kind)
		}
		return parseType(v, ptr.key(key))
	case "const":
		v, key, ok := get(obj, "value")
		if !ok {
			return nil, schemaErrorf(ptr, "const kind without a value")
		}
		n, err := toInt(v, ptr.key(key))
		if err != nil {
			return nil, err
		}
		return FlatConst{Literal: n}, nil
	default:
		return nil, schemaErrorf(ptr.key("kind"), "unknown type kind %q", kind)
	}
}

// parseDefined accepts "Name" or {name, generics}.
func parseDefined(v interface{}, ptr jsonPointer) (FlatType, error) {
	if name, ok := v.(string); ok {
		return FlatDefined{Name: name}, nil
	}

	obj, err := toObject(v, ptr)
	if err != nil {
		return nil, err
	}
	name, ok, err := getString(obj, ptr, "name")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, schemaErrorf(ptr, "defined type without a name")
	}

	defined := FlatDefined{Name: name}
	v, key, ok := get(obj, "generics")
	if !ok || v == nil {
		return defined, nil
	}
	args, err := toArray(v, ptr.key(key))
	if err != nil {
		return nil, err
	}
	for i, arg := range args {
		argPtr := ptr.key(key).index(i)
		generic, err := parseGenericArg(arg, argPtr)
		if err != nil {
			return nil, err
		}
		defined.Generics = append(defined.Generics, generic)
	}
	return defined, nil
}

// parseGenericArg reads a generic argument. Integers are const arguments.
func parseGenericArg(v interface{}, ptr jsonPointer) (FlatType, error) {
	if obj, ok := v.(*value.Object); ok {
		return parseType(obj, ptr)
	}
	if _, ok := v.(string); !ok {
		if n, err := toInt(v, ptr); err == nil {
			return FlatConst{Literal: n}, nil
		}
	}
	return parseType(v, ptr)
}

// applyPrefix applies an explicit "prefix" sibling to the types that carry
// one.
func applyPrefix(t FlatType, obj *value.Object, ptr jsonPointer) (FlatType, error) {
	name, ok, err := getString(obj, ptr, "prefix")
	if err != nil || !ok {
		return t, err
	}
	prefix, ok := parsePrefix(name)
	if !ok {
		return nil, schemaErrorf(ptr.key("prefix"), "unknown prefix %q", name)
	}

	switch typed := t.(type) {
	case FlatString:
		typed.Prefix = prefix
		return typed, nil
	case FlatBytes:
		typed.Prefix = prefix
		return typed, nil
	case FlatVec:
		typed.Prefix = prefix
		return typed, nil
	case FlatOption:
		typed.Prefix = prefix
		return typed, nil
	case FlatEnum:
		typed.Prefix = prefix
		return typed, nil
	default:
		return nil, schemaErrorf(ptr.key("prefix"), "prefix does not apply to this type")
	}
}

// parseFields accepts [{name, type}] (named), [type] (unnamed) or an object
// of name to type.
func parseFields(v interface{}, ptr jsonPointer) (FlatFields, error) {
	switch typed := v.(type) {
	case nil:
		return FlatFields{}, nil
	case []interface{}:
		if len(typed) == 0 {
			return FlatFields{}, nil
		}
		if !allNamed(typed) {
			return parseUnnamedFields(typed, ptr)
		}

		fields := FlatFields{Named: true}
		for i, item := range typed {
			itemPtr := ptr.index(i)
			obj := item.(*value.Object)
			name, _, _ := getString(obj, itemPtr, "name")
			field, err := parseField(name, obj, itemPtr)
			if err != nil {
				return FlatFields{}, err
			}
			fields.Fields = append(fields.Fields, field)
		}
		return fields, nil
	case *value.Object:
		if typed.Len() == 0 {
			return FlatFields{}, nil
		}
		fields := FlatFields{Named: true}
		for _, name := range typed.Keys() {
			body, _ := typed.Get(name)
			t, err := parseType(body, ptr.key(name))
			if err != nil {
				return FlatFields{}, err
			}
			fields.Fields = append(fields.Fields, FlatField{Name: name, Type: t})
		}
		return fields, nil
	default:
		return FlatFields{}, schemaErrorf(ptr, "fields must be an array or an object")
	}
}

func allNamed(items []interface{}) bool {
	for _, item := range items {
		obj, ok := item.(*value.Object)
		if !ok {
			return false
		}
		if name, ok := obj.Get("name"); !ok {
			return false
		} else if _, isString := name.(string); !isString {
			return false
		}
	}
	return true
}

func parseField(name string, obj *value.Object, ptr jsonPointer) (FlatField, error) {
	docs, err := parseDocs(obj, ptr)
	if err != nil {
		return FlatField{}, err
	}

	var t FlatType
	if v, ok := obj.Get("type"); ok {
		t, err = parseType(v, ptr.key("type"))
		if err == nil {
			t, err = applyPrefix(t, obj, ptr)
		}
	} else {
		t, err = parseType(obj, ptr)
	}
	if err != nil {
		return FlatField{}, err
	}
	return FlatField{Name: name, Docs: docs, Type: t}, nil
}

func parseUnnamedFields(items []interface{}, ptr jsonPointer) (FlatFields, error) {
	var fields FlatFields
	for i, item := range items {
		t, err := parseType(item, ptr.index(i))
		if err != nil {
			return FlatFields{}, err
		}
		fields.Fields = append(fields.Fields, FlatField{Type: t})
	}
	return fields, nil
}

// parseVariants accepts an array of names, codes or {name, code?, fields?}
// objects, or an object of name to fields. Codes default to the variant's
// position.
func parseVariants(v interface{}, ptr jsonPointer) ([]FlatEnumVariant, error) {
	var variants []FlatEnumVariant

	switch typed := v.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		for i, item := range typed {
			itemPtr := ptr.index(i)
			variant, err := parseVariant(item, uint64(i), itemPtr)
			if err != nil {
				return nil, err
			}
			variants = append(variants, variant)
		}
	case *value.Object:
		for i, name := range typed.Keys() {
			body, _ := typed.Get(name)
			itemPtr := ptr.key(name)
			variant := FlatEnumVariant{Name: name, Code: uint64(i)}

			switch b := body.(type) {
			case nil:
			case *value.Object:
				if _, _, ok := get(b, "fields", "code"); ok {
					parsed, err := parseVariantObject(b, uint64(i), itemPtr)
					if err != nil {
						return nil, err
					}
					parsed.Name = name
					variant = parsed
					break
				}
				fields, err := parseFields(b, itemPtr)
				if err != nil {
					return nil, err
				}
				variant.Fields = fields
			case []interface{}:
				fields, err := parseFields(b, itemPtr)
				if err != nil {
					return nil, err
				}
				variant.Fields = fields
			default:
				code, err := toUint64(b, itemPtr)
				if err != nil {
					return nil, err
				}
				variant.Code = code
			}
			variants = append(variants, variant)
		}
	default:
		return nil, schemaErrorf(ptr, "variants must be an array or an object")
	}

	seen := make(map[uint64]string, len(variants))
	for _, variant := range variants {
		if other, ok := seen[variant.Code]; ok {
			return nil, schemaErrorf(ptr, "variants %q and %q share code %d", other, variant.Name, variant.Code)
		}
		seen[variant.Code] = variant.Name
	}
	return variants, nil
}

func parseVariant(v interface{}, index uint64, ptr jsonPointer) (FlatEnumVariant, error) {
	switch typed := v.(type) {
	case string:
		return FlatEnumVariant{Name: typed, Code: index}, nil
	case *value.Object:
		return parseVariantObject(typed, index, ptr)
	default:
		code, err := toUint64(v, ptr)
		if err != nil {
			return FlatEnumVariant{}, schemaErrorf(ptr, "variant must be a name, a code or an object")
		}
		return FlatEnumVariant{Name: strconv.FormatUint(code, 10), Code: code}, nil
	}
}

func parseVariantObject(obj *value.Object, index uint64, ptr jsonPointer) (FlatEnumVariant, error) {
	name, _, err := getString(obj, ptr, "name")
	if err != nil {
		return FlatEnumVariant{}, err
	}
	docs, err := parseDocs(obj, ptr)
	if err != nil {
		return FlatEnumVariant{}, err
	}

	variant := FlatEnumVariant{Name: name, Docs: docs, Code: index}
	if v, ok := obj.Get("code"); ok {
		variant.Code, err = toUint64(v, ptr.key("code"))
		if err != nil {
			return FlatEnumVariant{}, err
		}
	}
	if name == "" {
		variant.Name = strconv.FormatUint(variant.Code, 10)
	}
	if v, ok := obj.Get("fields"); ok {
		variant.Fields, err = parseFields(v, ptr.key("fields"))
		if err != nil {
			return FlatEnumVariant{}, err
		}
	}
	return variant, nil
}

func parsePadded(v interface{}, ptr jsonPointer) (FlatType, error) {
	obj, err := toObject(v, ptr)
	if err != nil {
		return nil, err
	}

	var padded FlatPadded
	if padded.Before, _, err = getInt(obj, ptr, "before"); err != nil {
		return nil, err
	}
	if padded.MinSize, _, err = getInt(obj, ptr, "min_size", "minSize", "size"); err != nil {
		return nil, err
	}
	if padded.After, _, err = getInt(obj, ptr, "after"); err != nil {
		return nil, err
	}
	if padded.Before < 0 || padded.MinSize < 0 || padded.After < 0 {
		return nil, schemaErrorf(ptr, "padding sizes must not be negative")
	}

	content, key, ok := get(obj, "type")
	if !ok {
		return nil, schemaErrorf(ptr, "padded without a type")
	}
	padded.Content, err = parseType(content, ptr.key(key))
	if err != nil {
		return nil, err
	}
	return padded, nil
}

// parseBlob reads {blob: bytes} or {blob: {value, type}}, with an optional
// "offset" sibling.
func parseBlob(v interface{}, parent *value.Object, ptr jsonPointer) (FlatType, error) {
	var blob FlatBlob

	if offset, ok, err := getInt(parent, ptr, "offset"); err != nil {
		return nil, err
	} else if ok {
		if offset < 0 {
			return nil, schemaErrorf(ptr.key("offset"), "negative blob offset")
		}
		blob.Offset = &offset
	}

	blobPtr := ptr.key("blob")
	if obj, ok := v.(*value.Object); ok {
		if literal, ok := obj.Get("value"); ok {
			typeValue, key, ok := get(obj, "type")
			if !ok {
				return nil, schemaErrorf(blobPtr, "blob value without a type")
			}
			t, err := parseType(typeValue, blobPtr.key(key))
			if err != nil {
				return nil, err
			}
			blob.Type = t
			blob.Value = literal
			return blob, nil
		}
	}

	b, err := parseBytes(v, blobPtr)
	if err != nil {
		return nil, err
	}
	blob.Bytes = b
	return blob, nil
}

func parseLoop(v interface{}, ptr jsonPointer) (FlatType, error) {
	obj, err := toObject(v, ptr)
	if err != nil {
		return nil, err
	}
	itemsValue, key, ok := get(obj, "items", "type")
	if !ok {
		return nil, schemaErrorf(ptr, "loop without items")
	}
	items, err := parseType(itemsValue, ptr.key(key))
	if err != nil {
		return nil, err
	}
	stop, _ := obj.Get("stop")
	return FlatLoop{Items: items, Stop: stop}, nil
}

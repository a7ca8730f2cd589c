package idl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/code-payments/code-idl/pkg/idl/value"
)

// jsonPointer locates a node in the schema document (RFC 6901).
type jsonPointer string

func (p jsonPointer) key(k string) jsonPointer {
	k = strings.ReplaceAll(k, "~", "~0")
	k = strings.ReplaceAll(k, "/", "~1")
	return jsonPointer(string(p) + "/" + k)
}

func (p jsonPointer) index(i int) jsonPointer {
	return jsonPointer(string(p) + "/" + strconv.Itoa(i))
}

func schemaErrorf(ptr jsonPointer, format string, args ...interface{}) error {
	return &SchemaError{Path: string(ptr), Message: fmt.Sprintf(format, args...)}
}

func schemaWrap(ptr jsonPointer, err error, message string) error {
	if se, ok := err.(*SchemaError); ok {
		return se
	}
	return &SchemaError{Path: string(ptr), Message: message, Cause: err}
}

// get returns the first of keys present on obj. A nil obj has no keys.
func get(obj *value.Object, keys ...string) (interface{}, string, bool) {
	if obj == nil {
		return nil, "", false
	}
	for _, key := range keys {
		if v, ok := obj.Get(key); ok {
			return v, key, true
		}
	}
	return nil, "", false
}

func getString(obj *value.Object, ptr jsonPointer, keys ...string) (string, bool, error) {
	v, key, ok := get(obj, keys...)
	if !ok || v == nil {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", false, schemaErrorf(ptr.key(key), "expected a string, got %T", v)
	}
	return s, true, nil
}

func getBool(obj *value.Object, ptr jsonPointer, keys ...string) (bool, error) {
	v, key, ok := get(obj, keys...)
	if !ok || v == nil {
		return false, nil
	}
	b, err := value.ToBool(v)
	if err != nil {
		return false, schemaWrap(ptr.key(key), err, "expected a boolean")
	}
	return b, nil
}

func getInt(obj *value.Object, ptr jsonPointer, keys ...string) (int, bool, error) {
	v, key, ok := get(obj, keys...)
	if !ok || v == nil {
		return 0, false, nil
	}
	n, err := toInt(v, ptr.key(key))
	return n, err == nil, err
}

func toInt(v interface{}, ptr jsonPointer) (int, error) {
	n, err := value.ToBigInt(v)
	if err != nil {
		return 0, schemaWrap(ptr, err, "expected an integer")
	}
	if !value.InRange[int32](n) {
		return 0, schemaErrorf(ptr, "integer %s out of range", n)
	}
	return int(n.Int64()), nil
}

func toUint64(v interface{}, ptr jsonPointer) (uint64, error) {
	n, err := value.ToBigInt(v)
	if err != nil {
		return 0, schemaWrap(ptr, err, "expected an integer")
	}
	if !n.IsUint64() {
		return 0, schemaErrorf(ptr, "integer %s out of range", n)
	}
	return n.Uint64(), nil
}

func toObject(v interface{}, ptr jsonPointer) (*value.Object, error) {
	obj, ok := v.(*value.Object)
	if !ok {
		return nil, schemaErrorf(ptr, "expected an object, got %T", v)
	}
	return obj, nil
}

func toArray(v interface{}, ptr jsonPointer) ([]interface{}, error) {
	arr, ok := v.([]interface{})
	if !ok {
		return nil, schemaErrorf(ptr, "expected an array, got %T", v)
	}
	return arr, nil
}

// parseDocs accepts a single string or an array of strings.
func parseDocs(obj *value.Object, ptr jsonPointer) ([]string, error) {
	v, key, ok := get(obj, "docs")
	if !ok || v == nil {
		return nil, nil
	}

	switch typed := v.(type) {
	case string:
		return []string{typed}, nil
	case []interface{}:
		docs := make([]string, len(typed))
		for i, item := range typed {
			s, ok := item.(string)
			if !ok {
				return nil, schemaErrorf(ptr.key(key).index(i), "expected a string, got %T", item)
			}
			docs[i] = s
		}
		return docs, nil
	default:
		return nil, schemaErrorf(ptr.key(key), "docs must be a string or an array of strings")
	}
}

func parseBytes(v interface{}, ptr jsonPointer) ([]byte, error) {
	b, err := value.ToBytes(v)
	if err != nil {
		return nil, schemaWrap(ptr, err, "expected bytes")
	}
	return b, nil
}

// parseDiscriminator returns def when the document omits a discriminator. An
// explicit empty array is kept empty.
func parseDiscriminator(obj *value.Object, ptr jsonPointer, def []byte) ([]byte, error) {
	v, key, ok := get(obj, "discriminator")
	if !ok || v == nil {
		return def, nil
	}
	b, err := parseBytes(v, ptr.key(key))
	if err != nil {
		return nil, err
	}
	if b == nil {
		b = []byte{}
	}
	return b, nil
}

// eachNamed walks a collection given either as an array of objects carrying
// a "name" or as an object keyed by name.
func eachNamed(v interface{}, ptr jsonPointer, fn func(name string, body interface{}, ptr jsonPointer) error) error {
	seen := make(map[string]struct{})
	visit := func(name string, body interface{}, ptr jsonPointer) error {
		if _, ok := seen[name]; ok {
			return schemaErrorf(ptr, "duplicate name %q", name)
		}
		seen[name] = struct{}{}
		return fn(name, body, ptr)
	}

	switch typed := v.(type) {
	case nil:
		return nil
	case []interface{}:
		for i, item := range typed {
			itemPtr := ptr.index(i)
			obj, err := toObject(item, itemPtr)
			if err != nil {
				return err
			}
			name, ok, err := getString(obj, itemPtr, "name")
			if err != nil {
				return err
			}
			if !ok || name == "" {
				return schemaErrorf(itemPtr, "missing name")
			}
			if err := visit(name, obj, itemPtr); err != nil {
				return err
			}
		}
		return nil
	case *value.Object:
		for _, name := range typed.Keys() {
			body, _ := typed.Get(name)
			if err := visit(name, body, ptr.key(name)); err != nil {
				return err
			}
		}
		return nil
	default:
		return schemaErrorf(ptr, "expected an array or an object, got %T", v)
	}
}

// parseLiteral reads a schema literal. Strings holding JSON are parsed, and
// Rust byte strings (b"...") become bytes. Anything else is returned as is.
func parseLiteral(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}

	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, `b"`) && strings.HasSuffix(trimmed, `"`) && len(trimmed) >= 3 {
		return []byte(trimmed[2 : len(trimmed)-1])
	}
	if parsed, err := value.ParseJSON([]byte(trimmed)); err == nil {
		return parsed
	}
	return s
}

package idl

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/code-payments/code-idl/pkg/idl/casing"
	"github.com/code-payments/code-idl/pkg/idl/value"
)

// valuePath locates a node inside a value tree for error messages.
type valuePath string

const rootPath valuePath = "$"

func (p valuePath) field(name string) valuePath {
	return valuePath(string(p) + "." + name)
}

func (p valuePath) index(i int) valuePath {
	return valuePath(string(p) + "[" + strconv.Itoa(i) + "]")
}

// pathSegment is a field name or, when isIndex is set, an array index.
type pathSegment struct {
	name    string
	index   int
	isIndex bool
}

// parsePath splits a dotted path with optional bracketed indexes, such as
// "config.owners[2].key". Purely numeric dotted segments are indexes too.
func parsePath(path string) ([]pathSegment, error) {
	if path == "" {
		return nil, errors.New("empty path")
	}

	var segments []pathSegment
	for _, part := range strings.Split(path, ".") {
		name := part
		var indexes []int
		for {
			open := strings.IndexByte(name, '[')
			if open < 0 {
				break
			}
			end := strings.IndexByte(name[open:], ']')
			if end < 0 {
				return nil, errors.Errorf("unterminated index in path %q", path)
			}
			i, err := strconv.Atoi(name[open+1 : open+end])
			if err != nil || i < 0 {
				return nil, errors.Errorf("invalid index in path %q", path)
			}
			indexes = append(indexes, i)
			name = name[:open] + name[open+end+1:]
		}

		if name != "" {
			if i, err := strconv.Atoi(name); err == nil && i >= 0 {
				segments = append(segments, pathSegment{index: i, isIndex: true})
			} else {
				segments = append(segments, pathSegment{name: name})
			}
		}
		for _, i := range indexes {
			segments = append(segments, pathSegment{index: i, isIndex: true})
		}
	}

	if len(segments) == 0 {
		return nil, errors.Errorf("invalid path %q", path)
	}
	return segments, nil
}

// walkValue follows segments through a value tree, using casing guessing for
// object keys.
func walkValue(v interface{}, segments []pathSegment) (interface{}, error) {
	for _, segment := range segments {
		v = value.Normalize(v)
		if segment.isIndex {
			items, ok := v.([]interface{})
			if !ok {
				return nil, errors.Errorf("cannot index %T", v)
			}
			if segment.index >= len(items) {
				return nil, errors.Errorf("index %d out of range", segment.index)
			}
			v = items[segment.index]
			continue
		}

		o, ok := v.(*value.Object)
		if !ok {
			return nil, errors.Errorf("cannot read field %q of %T", segment.name, v)
		}
		_, next, ok := o.Lookup(segment.name)
		if !ok {
			return nil, errors.Errorf("no field %q", segment.name)
		}
		v = next
	}
	return v, nil
}

// walkType follows segments through a type. Options are looked through, so a
// path may traverse an optional struct. It returns nil if the path does not
// exist in the type.
func walkType(t FullType, segments []pathSegment) FullType {
	for _, segment := range segments {
		t = Unwrap(t)
		if option, ok := t.(FullOption); ok {
			t = Unwrap(option.Content)
		}

		switch typed := t.(type) {
		case FullStruct:
			t = fieldType(typed.Fields, segment)
		case FullVec:
			if !segment.isIndex {
				return nil
			}
			t = typed.Items
		case FullArray:
			if !segment.isIndex {
				return nil
			}
			t = typed.Items
		default:
			return nil
		}

		if t == nil {
			return nil
		}
	}
	return t
}

func fieldType(fields FullFields, segment pathSegment) FullType {
	if segment.isIndex {
		var count int
		for _, field := range fields.Fields {
			if IsValueless(field.Type) {
				continue
			}
			if count == segment.index {
				return field.Type
			}
			count++
		}
		return nil
	}

	names := make([]string, 0, len(fields.Fields))
	for _, field := range fields.Fields {
		names = append(names, field.Name)
	}
	field, ok := fields.Field(casing.GuessIntendedKey(names, segment.name))
	if !ok {
		return nil
	}
	return field.Type
}

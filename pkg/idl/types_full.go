package idl

import (
	"strconv"
)

// FullType is a concrete type ready for the codec. Named types are
// *FullTypedef nodes shared through the Program's resolution memo, so a
// self-referential typedef forms a graph rather than an infinite tree.
type FullType interface {
	isFullType()
}

type FullPrimitive struct {
	Primitive Primitive
}

type FullString struct {
	Prefix Prefix
}

type FullBytes struct {
	Prefix Prefix
}

type FullOption struct {
	Prefix  Prefix
	Fixed   bool
	Content FullType
}

type FullVec struct {
	Prefix Prefix
	Items  FullType
}

type FullArray struct {
	Items  FullType
	Length int
}

type FullStruct struct {
	Fields FullFields
}

// FullEnum carries lookup tables from variant name, code and code string to
// the variant index. TagPadding and Stride are non-zero only for C layouts:
// TagPadding zero bytes follow the discriminant and every variant payload is
// padded to Stride bytes.
type FullEnum struct {
	Prefix     Prefix
	Variants   []FullEnumVariant
	TagPadding int
	Stride     int

	byName       map[string]int
	byCode       map[uint64]int
	byCodeString map[string]int
}

type FullEnumVariant struct {
	Name   string
	Code   uint64
	Fields FullFields
}

type FullPad struct {
	Size int
}

type FullBlob struct {
	Bytes  []byte
	Offset *int
}

type FullLoop struct {
	Items FullType
	Stop  []byte
}

type FullPadded struct {
	Before  int
	MinSize int
	After   int
	Content FullType
}

// FullTypedef is a resolved named type. Content is nil only while the
// typedef is being resolved.
type FullTypedef struct {
	Name     string
	Generics []string
	Content  FullType
}

type FullFields struct {
	Named  bool
	Fields []FullField
}

type FullField struct {
	Name string
	Type FullType
}

func (FullPrimitive) isFullType() {}
func (FullString) isFullType()    {}
func (FullBytes) isFullType()     {}
func (FullOption) isFullType()    {}
func (FullVec) isFullType()       {}
func (FullArray) isFullType()     {}
func (FullStruct) isFullType()    {}
func (FullEnum) isFullType()      {}
func (FullPad) isFullType()       {}
func (FullBlob) isFullType()      {}
func (FullLoop) isFullType()      {}
func (FullPadded) isFullType()    {}
func (*FullTypedef) isFullType()  {}

// NewFullEnum builds an enum with its lookup tables.
func NewFullEnum(prefix Prefix, variants []FullEnumVariant) FullEnum {
	e := FullEnum{
		Prefix:       prefix,
		Variants:     variants,
		byName:       make(map[string]int, len(variants)),
		byCode:       make(map[uint64]int, len(variants)),
		byCodeString: make(map[string]int, len(variants)),
	}
	for i, v := range variants {
		e.byName[v.Name] = i
		e.byCode[v.Code] = i
		e.byCodeString[strconv.FormatUint(v.Code, 10)] = i
	}
	return e
}

// VariantByName returns the index of the variant called name.
func (e FullEnum) VariantByName(name string) (int, bool) {
	i, ok := e.byName[name]
	return i, ok
}

// VariantByCode returns the index of the variant with discriminant code.
func (e FullEnum) VariantByCode(code uint64) (int, bool) {
	i, ok := e.byCode[code]
	return i, ok
}

// VariantByCodeString returns the index of the variant whose discriminant
// prints as s in base 10.
func (e FullEnum) VariantByCodeString(s string) (int, bool) {
	i, ok := e.byCodeString[s]
	return i, ok
}

// Unwrap follows typedef nodes down to the first non-typedef type. It returns
// nil for a typedef that is still being resolved.
func Unwrap(t FullType) FullType {
	for {
		td, ok := t.(*FullTypedef)
		if !ok {
			return t
		}
		if td.Content == nil {
			return nil
		}
		t = td.Content
	}
}

// IsValueless reports whether t carries no value (pads and blobs). Value-less
// fields are skipped in decoded structs and never required on encode.
func IsValueless(t FullType) bool {
	switch Unwrap(t).(type) {
	case FullPad, FullBlob:
		return true
	default:
		return false
	}
}

func (f FullFields) valueCount() int {
	var count int
	for _, field := range f.Fields {
		if !IsValueless(field.Type) {
			count++
		}
	}
	return count
}

// Field returns the named field, matching the name exactly.
func (f FullFields) Field(name string) (FullField, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FullField{}, false
}

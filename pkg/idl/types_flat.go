package idl

// FlatType is a type as written in a schema. It may still reference typedefs
// by name or generic parameters by symbol.
type FlatType interface {
	isFlatType()
}

type FlatPrimitive struct {
	Primitive Primitive
}

type FlatString struct {
	Prefix Prefix
}

type FlatBytes struct {
	Prefix Prefix
}

// FlatOption is a presence prefix followed by the content. Fixed options
// (C-style COption) always reserve space for the content.
type FlatOption struct {
	Prefix  Prefix
	Fixed   bool
	Content FlatType
}

type FlatVec struct {
	Prefix Prefix
	Items  FlatType
}

// FlatArray has a Length that is either a FlatConst or a FlatGeneric naming a
// const generic parameter.
type FlatArray struct {
	Items  FlatType
	Length FlatType
}

type FlatStruct struct {
	Fields FlatFields
}

// FlatEnum has a zero Prefix when the schema does not declare one.
type FlatEnum struct {
	Prefix   Prefix
	Variants []FlatEnumVariant
}

type FlatEnumVariant struct {
	Name   string
	Docs   []string
	Code   uint64
	Fields FlatFields
}

type FlatDefined struct {
	Name     string
	Generics []FlatType
}

type FlatGeneric struct {
	Symbol string
}

// FlatConst is a const generic argument.
type FlatConst struct {
	Literal int
}

type FlatPad struct {
	Size int
}

// FlatBlob is a value-less constant byte sequence. It is either given as
// Bytes or computed by encoding Value with Type. A non-nil Offset pins it
// relative to the start of the enclosing struct.
type FlatBlob struct {
	Bytes  []byte
	Value  interface{}
	Type   FlatType
	Offset *int
}

// FlatLoop repeats Items until the encoded Stop value is read or the input is
// exhausted. A nil Stop only ends at the end of the input.
type FlatLoop struct {
	Items FlatType
	Stop  interface{}
}

// FlatPadded surrounds Content with zero bytes: Before ahead of it, enough to
// reach MinSize after it, then After.
type FlatPadded struct {
	Before  int
	MinSize int
	After   int
	Content FlatType
}

// FlatFields is an ordered field list. Unnamed fields form a tuple. An empty
// list is always unnamed.
type FlatFields struct {
	Named  bool
	Fields []FlatField
}

type FlatField struct {
	Name string
	Docs []string
	Type FlatType
}

func (FlatPrimitive) isFlatType() {}
func (FlatString) isFlatType()    {}
func (FlatBytes) isFlatType()     {}
func (FlatOption) isFlatType()    {}
func (FlatVec) isFlatType()       {}
func (FlatArray) isFlatType()     {}
func (FlatStruct) isFlatType()    {}
func (FlatEnum) isFlatType()      {}
func (FlatDefined) isFlatType()   {}
func (FlatGeneric) isFlatType()   {}
func (FlatConst) isFlatType()     {}
func (FlatPad) isFlatType()       {}
func (FlatBlob) isFlatType()      {}
func (FlatLoop) isFlatType()      {}
func (FlatPadded) isFlatType()    {}

package idl

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// maxResolveDepth bounds nested typedef expansion. Generic typedefs that
// reference themselves with ever-growing arguments would otherwise never
// reach a memoized node.
const maxResolveDepth = 128

// Resolve turns a flat type into a full type. bindings maps generic
// parameter names to closed flat types (types with no free generics).
//
// Named references are memoized per Program by name and generic arguments.
// A reference to a typedef that is still being resolved returns the same
// *FullTypedef node, which is how self-referential types terminate.
func (p *Program) Resolve(flat FlatType, bindings map[string]FlatType) (FullType, error) {
	p.memoMu.Lock()
	defer p.memoMu.Unlock()

	r := &resolver{program: p}
	full, err := r.resolve(flat, bindings)
	if err != nil {
		r.rollback()
		return nil, err
	}
	return full, nil
}

// ResolveTypedef resolves the typedef called name with the given generic
// arguments.
func (p *Program) ResolveTypedef(name string, generics ...FlatType) (FullType, error) {
	return p.Resolve(FlatDefined{Name: name, Generics: generics}, nil)
}

type resolver struct {
	program *Program
	created []string
	stack   []string
}

// rollback drops memo entries created by a failed resolution. They may hold
// partially resolved content.
func (r *resolver) rollback() {
	for _, key := range r.created {
		delete(r.program.memo, key)
	}
}

func (r *resolver) errorf(format string, args ...interface{}) error {
	name := "<anonymous>"
	if len(r.stack) > 0 {
		name = r.stack[len(r.stack)-1]
	}
	return &TypeResolutionError{Typedef: name, Message: fmt.Sprintf(format, args...)}
}

func (r *resolver) resolve(flat FlatType, bindings map[string]FlatType) (FullType, error) {
	switch t := flat.(type) {
	case FlatPrimitive:
		return FullPrimitive{Primitive: t.Primitive}, nil
	case FlatString:
		return FullString{Prefix: t.Prefix}, nil
	case FlatBytes:
		return FullBytes{Prefix: t.Prefix}, nil
	case FlatOption:
		content, err := r.resolve(t.Content, bindings)
		if err != nil {
			return nil, err
		}
		if t.Fixed {
			if _, err := fixedSize(content); err != nil {
				return nil, r.errorf("fixed option content: %v", err)
			}
		}
		return FullOption{Prefix: t.Prefix, Fixed: t.Fixed, Content: content}, nil
	case FlatVec:
		items, err := r.resolve(t.Items, bindings)
		if err != nil {
			return nil, err
		}
		return FullVec{Prefix: t.Prefix, Items: items}, nil
	case FlatArray:
		items, err := r.resolve(t.Items, bindings)
		if err != nil {
			return nil, err
		}
		length, err := r.constValue(t.Length, bindings)
		if err != nil {
			return nil, err
		}
		return FullArray{Items: items, Length: length}, nil
	case FlatStruct:
		fields, err := r.resolveFields(t.Fields, bindings)
		if err != nil {
			return nil, err
		}
		return FullStruct{Fields: fields}, nil
	case FlatEnum:
		return r.resolveEnum(t, bindings)
	case FlatDefined:
		if bound, ok := bindings[t.Name]; ok && len(t.Generics) == 0 {
			return r.resolve(bound, nil)
		}
		return r.resolveDefined(t, bindings)
	case FlatGeneric:
		bound, ok := bindings[t.Symbol]
		if !ok {
			return nil, r.errorf("unbound generic %q", t.Symbol)
		}
		return r.resolve(bound, nil)
	case FlatConst:
		return nil, r.errorf("const generic %d used as a type", t.Literal)
	case FlatPad:
		return FullPad{Size: t.Size}, nil
	case FlatBlob:
		return r.resolveBlob(t, bindings)
	case FlatLoop:
		items, err := r.resolve(t.Items, bindings)
		if err != nil {
			return nil, err
		}
		var stop []byte
		if t.Stop != nil {
			stop, err = encodeDetached(items, t.Stop)
			if err != nil {
				return nil, r.errorf("loop stop value: %v", err)
			}
		}
		return FullLoop{Items: items, Stop: stop}, nil
	case FlatPadded:
		content, err := r.resolve(t.Content, bindings)
		if err != nil {
			return nil, err
		}
		return FullPadded{Before: t.Before, MinSize: t.MinSize, After: t.After, Content: content}, nil
	case nil:
		return nil, r.errorf("missing type")
	default:
		return nil, r.errorf("unsupported flat type %T", flat)
	}
}

func (r *resolver) resolveFields(fields FlatFields, bindings map[string]FlatType) (FullFields, error) {
	out := FullFields{Named: fields.Named}
	if len(fields.Fields) == 0 {
		return out, nil
	}

	out.Fields = make([]FullField, len(fields.Fields))
	for i, field := range fields.Fields {
		full, err := r.resolve(field.Type, bindings)
		if err != nil {
			return FullFields{}, err
		}
		out.Fields[i] = FullField{Name: field.Name, Type: full}
	}
	return out, nil
}

func (r *resolver) resolveEnum(t FlatEnum, bindings map[string]FlatType) (FullType, error) {
	prefix := t.Prefix
	if prefix == 0 {
		prefix = PrefixU8
	}

	variants := make([]FullEnumVariant, len(t.Variants))
	for i, variant := range t.Variants {
		if variant.Code > prefix.Max() {
			return nil, r.errorf("variant %q code %d does not fit in %s", variant.Name, variant.Code, prefix)
		}
		fields, err := r.resolveFields(variant.Fields, bindings)
		if err != nil {
			return nil, err
		}
		variants[i] = FullEnumVariant{Name: variant.Name, Code: variant.Code, Fields: fields}
	}
	return NewFullEnum(prefix, variants), nil
}

func (r *resolver) resolveBlob(t FlatBlob, bindings map[string]FlatType) (FullType, error) {
	if t.Type == nil {
		return FullBlob{Bytes: t.Bytes, Offset: t.Offset}, nil
	}

	full, err := r.resolve(t.Type, bindings)
	if err != nil {
		return nil, err
	}
	b, err := encodeDetached(full, t.Value)
	if err != nil {
		return nil, r.errorf("blob value: %v", err)
	}
	return FullBlob{Bytes: b, Offset: t.Offset}, nil
}

func (r *resolver) constValue(flat FlatType, bindings map[string]FlatType) (int, error) {
	switch t := flat.(type) {
	case FlatConst:
		if t.Literal < 0 {
			return 0, r.errorf("negative length %d", t.Literal)
		}
		return t.Literal, nil
	case FlatGeneric:
		bound, ok := bindings[t.Symbol]
		if !ok {
			return 0, r.errorf("unbound const generic %q", t.Symbol)
		}
		return r.constValue(bound, nil)
	case FlatDefined:
		if bound, ok := bindings[t.Name]; ok && len(t.Generics) == 0 {
			return r.constValue(bound, nil)
		}
	}
	return 0, r.errorf("array length must be a constant, got %s", canonicalFlat(flat))
}

func (r *resolver) resolveDefined(d FlatDefined, bindings map[string]FlatType) (FullType, error) {
	typedef, ok := r.program.Typedefs[d.Name]
	if !ok {
		typedef, ok = r.program.Typedefs[guessMapKey(r.program.Typedefs, d.Name)]
	}
	if !ok {
		return nil, &TypeResolutionError{Typedef: d.Name, Message: "unknown typedef"}
	}
	if len(typedef.Generics) != len(d.Generics) {
		return nil, &TypeResolutionError{
			Typedef: typedef.Name,
			Message: fmt.Sprintf("expected %d generic arguments, got %d", len(typedef.Generics), len(d.Generics)),
		}
	}

	args := make([]FlatType, len(d.Generics))
	canonicalArgs := make([]string, len(d.Generics))
	for i, generic := range d.Generics {
		closed, err := r.substitute(generic, bindings)
		if err != nil {
			return nil, err
		}
		args[i] = closed
		canonicalArgs[i] = canonicalFlat(closed)
	}

	key := typedef.Name
	if len(args) > 0 {
		key += "<" + strings.Join(canonicalArgs, ",") + ">"
	}
	if node, ok := r.program.memo[key]; ok {
		return node, nil
	}

	if len(r.stack) >= maxResolveDepth {
		return nil, &TypeResolutionError{Typedef: typedef.Name, Message: "typedef nesting is too deep, likely unbounded generic recursion"}
	}
	r.stack = append(r.stack, typedef.Name)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	node := &FullTypedef{Name: typedef.Name, Generics: canonicalArgs}
	r.program.memo[key] = node
	r.created = append(r.created, key)

	inner := make(map[string]FlatType, len(typedef.Generics))
	for i, generic := range typedef.Generics {
		_, isConst := args[i].(FlatConst)
		if generic.Kind == "const" && !isConst {
			return nil, r.errorf("generic %q expects a const argument", generic.Name)
		}
		if generic.Kind != "const" && isConst {
			return nil, r.errorf("generic %q expects a type argument", generic.Name)
		}
		inner[generic.Name] = args[i]
	}

	content, err := r.resolve(typedef.Type, inner)
	if err != nil {
		return nil, err
	}

	if typedef.Repr != nil && typedef.Repr.Kind == ReprTransparent {
		content = unwrapTransparent(content)
	}
	if typedef.usesCLayout() {
		content, err = layoutC(content, typedef)
		if err != nil {
			return nil, err
		}
	}

	node.Content = content
	return node, nil
}

// substitute replaces generic symbols in flat with their bindings, producing
// a closed type.
func (r *resolver) substitute(flat FlatType, bindings map[string]FlatType) (FlatType, error) {
	switch t := flat.(type) {
	case FlatGeneric:
		bound, ok := bindings[t.Symbol]
		if !ok {
			return nil, r.errorf("unbound generic %q", t.Symbol)
		}
		return bound, nil
	case FlatDefined:
		if bound, ok := bindings[t.Name]; ok && len(t.Generics) == 0 {
			return bound, nil
		}
		generics := make([]FlatType, len(t.Generics))
		for i, g := range t.Generics {
			closed, err := r.substitute(g, bindings)
			if err != nil {
				return nil, err
			}
			generics[i] = closed
		}
		return FlatDefined{Name: t.Name, Generics: generics}, nil
	case FlatOption:
		content, err := r.substitute(t.Content, bindings)
		if err != nil {
			return nil, err
		}
		t.Content = content
		return t, nil
	case FlatVec:
		items, err := r.substitute(t.Items, bindings)
		if err != nil {
			return nil, err
		}
		t.Items = items
		return t, nil
	case FlatArray:
		items, err := r.substitute(t.Items, bindings)
		if err != nil {
			return nil, err
		}
		length, err := r.substitute(t.Length, bindings)
		if err != nil {
			return nil, err
		}
		return FlatArray{Items: items, Length: length}, nil
	case FlatStruct:
		fields, err := r.substituteFields(t.Fields, bindings)
		if err != nil {
			return nil, err
		}
		return FlatStruct{Fields: fields}, nil
	case FlatEnum:
		variants := make([]FlatEnumVariant, len(t.Variants))
		for i, variant := range t.Variants {
			fields, err := r.substituteFields(variant.Fields, bindings)
			if err != nil {
				return nil, err
			}
			variant.Fields = fields
			variants[i] = variant
		}
		return FlatEnum{Prefix: t.Prefix, Variants: variants}, nil
	case FlatLoop:
		items, err := r.substitute(t.Items, bindings)
		if err != nil {
			return nil, err
		}
		t.Items = items
		return t, nil
	case FlatPadded:
		content, err := r.substitute(t.Content, bindings)
		if err != nil {
			return nil, err
		}
		t.Content = content
		return t, nil
	case FlatBlob:
		if t.Type == nil {
			return t, nil
		}
		blobType, err := r.substitute(t.Type, bindings)
		if err != nil {
			return nil, err
		}
		t.Type = blobType
		return t, nil
	default:
		return flat, nil
	}
}

func (r *resolver) substituteFields(fields FlatFields, bindings map[string]FlatType) (FlatFields, error) {
	out := FlatFields{Named: fields.Named}
	for _, field := range fields.Fields {
		closed, err := r.substitute(field.Type, bindings)
		if err != nil {
			return FlatFields{}, err
		}
		field.Type = closed
		out.Fields = append(out.Fields, field)
	}
	return out, nil
}

func unwrapTransparent(content FullType) FullType {
	s, ok := content.(FullStruct)
	if !ok || s.Fields.valueCount() != 1 || len(s.Fields.Fields) != 1 {
		return content
	}
	return s.Fields.Fields[0].Type
}

// canonicalFlat renders a closed flat type as a stable memo key fragment.
func canonicalFlat(flat FlatType) string {
	switch t := flat.(type) {
	case FlatPrimitive:
		return t.Primitive.String()
	case FlatString:
		return "string" + t.Prefix.String()
	case FlatBytes:
		return "bytes" + t.Prefix.String()
	case FlatOption:
		kind := "option"
		if t.Fixed {
			kind = "coption"
		}
		return kind + t.Prefix.String() + "(" + canonicalFlat(t.Content) + ")"
	case FlatVec:
		return "vec" + t.Prefix.String() + "(" + canonicalFlat(t.Items) + ")"
	case FlatArray:
		return "[" + canonicalFlat(t.Items) + ";" + canonicalFlat(t.Length) + "]"
	case FlatStruct:
		return "struct" + canonicalFields(t.Fields)
	case FlatEnum:
		parts := make([]string, len(t.Variants))
		for i, v := range t.Variants {
			parts[i] = fmt.Sprintf("%s=%d%s", v.Name, v.Code, canonicalFields(v.Fields))
		}
		return "enum" + t.Prefix.String() + "{" + strings.Join(parts, "|") + "}"
	case FlatDefined:
		if len(t.Generics) == 0 {
			return t.Name
		}
		parts := make([]string, len(t.Generics))
		for i, g := range t.Generics {
			parts[i] = canonicalFlat(g)
		}
		return t.Name + "<" + strings.Join(parts, ",") + ">"
	case FlatGeneric:
		return "$" + t.Symbol
	case FlatConst:
		return fmt.Sprintf("%d", t.Literal)
	case FlatPad:
		return fmt.Sprintf("pad(%d)", t.Size)
	case FlatBlob:
		if t.Type != nil {
			return fmt.Sprintf("blob(%s=%v)", canonicalFlat(t.Type), t.Value)
		}
		return fmt.Sprintf("blob(%x)", t.Bytes)
	case FlatLoop:
		return fmt.Sprintf("loop(%s;%v)", canonicalFlat(t.Items), t.Stop)
	case FlatPadded:
		return fmt.Sprintf("padded(%d,%d,%d,%s)", t.Before, t.MinSize, t.After, canonicalFlat(t.Content))
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%T", flat)
	}
}

func canonicalFields(fields FlatFields) string {
	parts := make([]string, len(fields.Fields))
	for i, f := range fields.Fields {
		if fields.Named {
			parts[i] = f.Name + ":" + canonicalFlat(f.Type)
		} else {
			parts[i] = canonicalFlat(f.Type)
		}
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// encodeDetached encodes with default options, for values embedded in the
// schema itself.
func encodeDetached(t FullType, v interface{}) ([]byte, error) {
	b, err := Encode(t, v)
	return b, errors.Wrap(err, "cannot encode schema value")
}

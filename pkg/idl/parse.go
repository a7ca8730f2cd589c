package idl

import (
	"github.com/code-payments/code-idl/pkg/idl/value"
	"github.com/code-payments/code-idl/pkg/solana"
)

// ParseProgramJSON parses a JSON IDL document. Object key order is kept, so
// fields given as name to type objects stay in document order.
func ParseProgramJSON(data []byte) (*Program, error) {
	doc, err := value.ParseJSON(data)
	if err != nil {
		return nil, &SchemaError{Message: "invalid json", Cause: err}
	}
	return ParseProgram(doc)
}

// ParseProgram builds a Program from a decoded document. Go maps are accepted
// but carry no order; prefer ParseProgramJSON or *value.Object trees.
//
// Every account, instruction, event and constant type is resolved before
// returning, so a Program that parses can encode and decode.
func ParseProgram(doc interface{}) (*Program, error) {
	root, err := toObject(value.Normalize(doc), "")
	if err != nil {
		return nil, err
	}

	p := newProgram()
	if err := p.parseMetadata(root); err != nil {
		return nil, err
	}

	steps := []struct {
		keys  []string
		parse func(name string, body interface{}, ptr jsonPointer) error
	}{
		{[]string{"types", "typedefs"}, p.parseTypedef},
		{[]string{"constants"}, p.parseConstant},
		{[]string{"accounts"}, p.parseAccount},
		{[]string{"events"}, p.parseEvent},
		{[]string{"errors"}, p.parseError},
		{[]string{"pdas"}, p.parsePdaDef},
		{[]string{"instructions"}, p.parseInstruction},
	}
	for _, step := range steps {
		v, key, ok := get(root, step.keys...)
		if !ok {
			continue
		}
		if err := eachNamed(v, jsonPointer("").key(key), step.parse); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Program) parseMetadata(root *value.Object) error {
	metadata, _, _ := get(root, "metadata")
	metaObj, _ := metadata.(*value.Object)
	metaPtr := jsonPointer("").key("metadata")

	read := func(key string) (string, error) {
		if s, ok, err := getString(root, "", key); err != nil || ok {
			return s, err
		}
		s, _, err := getString(metaObj, metaPtr, key)
		return s, err
	}

	var err error
	if p.Metadata.Name, err = read("name"); err != nil {
		return err
	}
	if p.Metadata.Version, err = read("version"); err != nil {
		return err
	}
	if p.Metadata.Spec, err = read("spec"); err != nil {
		return err
	}
	if p.Metadata.Description, err = read("description"); err != nil {
		return err
	}

	address, err := read("address")
	if err != nil {
		return err
	}
	if address != "" {
		p.Metadata.Address, err = solana.ParsePublicKey(address)
		if err != nil {
			return schemaWrap("/address", err, "invalid program address")
		}
	}

	if p.Metadata.Docs, err = parseDocs(root, ""); err != nil {
		return err
	}
	if p.Metadata.Docs == nil {
		p.Metadata.Docs, err = parseDocs(metaObj, metaPtr)
	}
	return err
}

func (p *Program) parseTypedef(name string, body interface{}, ptr jsonPointer) error {
	typedef := &Typedef{Name: name}

	obj, isObject := body.(*value.Object)
	if !isObject || !hasTypeKeys(obj) {
		t, err := parseType(body, ptr)
		if err != nil {
			return err
		}
		typedef.Type = t
		p.Typedefs[name] = typedef
		return nil
	}

	var err error
	if typedef.Docs, err = parseDocs(obj, ptr); err != nil {
		return err
	}
	if typedef.Generics, err = parseTypedefGenerics(obj, ptr); err != nil {
		return err
	}
	if typedef.Serialization, _, err = getString(obj, ptr, "serialization"); err != nil {
		return err
	}
	if typedef.Repr, err = parseRepr(obj, ptr); err != nil {
		return err
	}
	if typedef.Type, err = parseType(obj, ptr); err != nil {
		return err
	}

	p.Typedefs[name] = typedef
	return nil
}

// parseTypedefGenerics accepts "T" or {kind, name} entries.
func parseTypedefGenerics(obj *value.Object, ptr jsonPointer) ([]TypedefGeneric, error) {
	v, key, ok := get(obj, "generics")
	if !ok || v == nil {
		return nil, nil
	}
	items, err := toArray(v, ptr.key(key))
	if err != nil {
		return nil, err
	}

	generics := make([]TypedefGeneric, len(items))
	for i, item := range items {
		itemPtr := ptr.key(key).index(i)
		switch typed := item.(type) {
		case string:
			generics[i] = TypedefGeneric{Kind: "type", Name: typed}
		case *value.Object:
			name, ok, err := getString(typed, itemPtr, "name")
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, schemaErrorf(itemPtr, "generic without a name")
			}
			kind, ok, err := getString(typed, itemPtr, "kind")
			if err != nil {
				return nil, err
			}
			if !ok {
				kind = "type"
			}
			if kind != "type" && kind != "const" {
				return nil, schemaErrorf(itemPtr.key("kind"), "unknown generic kind %q", kind)
			}
			generics[i] = TypedefGeneric{Kind: kind, Name: name}
		default:
			return nil, schemaErrorf(itemPtr, "generic must be a name or an object")
		}
	}
	return generics, nil
}

// parseRepr accepts "c" or {kind, packed, align}.
func parseRepr(obj *value.Object, ptr jsonPointer) (*Repr, error) {
	v, key, ok := get(obj, "repr")
	if !ok || v == nil {
		return nil, nil
	}
	reprPtr := ptr.key(key)

	repr := &Repr{}
	switch typed := v.(type) {
	case string:
		repr.Kind = typed
	case *value.Object:
		var err error
		if repr.Kind, _, err = getString(typed, reprPtr, "kind"); err != nil {
			return nil, err
		}
		if repr.Packed, err = getBool(typed, reprPtr, "packed"); err != nil {
			return nil, err
		}
		if repr.Align, _, err = getInt(typed, reprPtr, "align"); err != nil {
			return nil, err
		}
	default:
		return nil, schemaErrorf(reprPtr, "repr must be a string or an object")
	}

	switch repr.Kind {
	case ReprRust, ReprC, ReprTransparent:
	case "":
		repr.Kind = ReprRust
	default:
		return nil, schemaErrorf(reprPtr, "unknown repr %q", repr.Kind)
	}
	return repr, nil
}

// parseContent reads the type of an account or event. A body with no type
// keys refers to the typedef of the same name.
func parseContent(name string, obj *value.Object, ptr jsonPointer) (FlatType, error) {
	if !hasTypeKeys(obj) {
		return FlatDefined{Name: name}, nil
	}
	return parseType(obj, ptr)
}

func (p *Program) resolveContent(flat FlatType, ptr jsonPointer) (FullType, error) {
	full, err := p.Resolve(flat, nil)
	if err != nil {
		return nil, schemaWrap(ptr, err, "cannot resolve type")
	}
	return full, nil
}

func (p *Program) parseAccount(name string, body interface{}, ptr jsonPointer) error {
	obj, _ := body.(*value.Object)
	account := &Account{Name: name}

	var err error
	if account.Docs, err = parseDocs(obj, ptr); err != nil {
		return err
	}
	if account.Discriminator, err = parseDiscriminator(obj, ptr, defaultAccountDiscriminator(name)); err != nil {
		return err
	}
	if space, ok, err := getInt(obj, ptr, "space"); err != nil {
		return err
	} else if ok {
		account.Space = &space
	}
	if account.Blobs, err = parseAccountBlobs(obj, ptr); err != nil {
		return err
	}

	if obj == nil && body != nil {
		account.ContentFlat, err = parseType(body, ptr)
	} else {
		account.ContentFlat, err = parseContent(name, obj, ptr)
	}
	if err != nil {
		return err
	}
	if account.Content, err = p.resolveContent(account.ContentFlat, ptr); err != nil {
		return err
	}

	p.Accounts[name] = account
	return nil
}

// parseAccountBlobs reads [{offset, value|bytes}].
func parseAccountBlobs(obj *value.Object, ptr jsonPointer) ([]AccountBlob, error) {
	v, key, ok := get(obj, "blobs")
	if !ok || v == nil {
		return nil, nil
	}
	items, err := toArray(v, ptr.key(key))
	if err != nil {
		return nil, err
	}

	blobs := make([]AccountBlob, 0, len(items))
	for i, item := range items {
		itemPtr := ptr.key(key).index(i)
		blobObj, err := toObject(item, itemPtr)
		if err != nil {
			return nil, err
		}
		offset, _, err := getInt(blobObj, itemPtr, "offset")
		if err != nil {
			return nil, err
		}
		if offset < 0 {
			return nil, schemaErrorf(itemPtr.key("offset"), "negative blob offset")
		}
		raw, rawKey, ok := get(blobObj, "value", "bytes")
		if !ok {
			return nil, schemaErrorf(itemPtr, "blob without a value")
		}
		b, err := parseBytes(raw, itemPtr.key(rawKey))
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, AccountBlob{Offset: offset, Bytes: b})
	}
	return blobs, nil
}

func (p *Program) parseEvent(name string, body interface{}, ptr jsonPointer) error {
	obj, _ := body.(*value.Object)
	event := &Event{Name: name}

	var err error
	if event.Docs, err = parseDocs(obj, ptr); err != nil {
		return err
	}
	if event.Discriminator, err = parseDiscriminator(obj, ptr, defaultEventDiscriminator(name)); err != nil {
		return err
	}
	if obj == nil && body != nil {
		event.ContentFlat, err = parseType(body, ptr)
	} else {
		event.ContentFlat, err = parseContent(name, obj, ptr)
	}
	if err != nil {
		return err
	}
	if event.Content, err = p.resolveContent(event.ContentFlat, ptr); err != nil {
		return err
	}

	p.Events[name] = event
	return nil
}

// parseError accepts {code, msg} bodies or a bare code.
func (p *Program) parseError(name string, body interface{}, ptr jsonPointer) error {
	def := &ErrorDef{Name: name}

	if obj, ok := body.(*value.Object); ok {
		v, key, ok := get(obj, "code")
		if !ok {
			return schemaErrorf(ptr, "error without a code")
		}
		code, err := toUint64(v, ptr.key(key))
		if err != nil {
			return err
		}
		def.Code = code
		if def.Msg, _, err = getString(obj, ptr, "msg", "message"); err != nil {
			return err
		}
	} else {
		code, err := toUint64(body, ptr)
		if err != nil {
			return err
		}
		def.Code = code
	}

	p.Errors[name] = def
	return nil
}

func (p *Program) parseConstant(name string, body interface{}, ptr jsonPointer) error {
	obj, err := toObject(body, ptr)
	if err != nil {
		return err
	}

	constant := &Constant{Name: name}
	if constant.Docs, err = parseDocs(obj, ptr); err != nil {
		return err
	}

	typeValue, typeKey, ok := get(obj, "type")
	if !ok {
		return schemaErrorf(ptr, "constant without a type")
	}
	if constant.TypeFlat, err = parseType(typeValue, ptr.key(typeKey)); err != nil {
		return err
	}
	if constant.Type, err = p.resolveContent(constant.TypeFlat, ptr.key(typeKey)); err != nil {
		return err
	}

	raw, rawKey, ok := get(obj, "value")
	if !ok {
		return schemaErrorf(ptr, "constant without a value")
	}
	constant.Value, constant.Bytes, err = constantValue(constant.Type, raw)
	if err != nil {
		return schemaWrap(ptr.key(rawKey), err, "invalid constant value")
	}

	p.Constants[name] = constant
	return nil
}

// constantValue interprets a literal against its type and returns the value
// and its seed bytes. Strings and bytes are used raw, everything else is
// encoded.
func constantValue(t FullType, raw interface{}) (interface{}, []byte, error) {
	switch typed := Unwrap(t).(type) {
	case FullString:
		s, ok := raw.(string)
		if !ok {
			return nil, nil, &InvalidValueError{Path: string(rootPath), Message: "expected a string"}
		}
		if parsed, isString := parseLiteral(s).(string); isString && len(s) > 0 && s[0] == '"' {
			s = parsed
		}
		return s, []byte(s), nil
	case FullPrimitive:
		if typed.Primitive == PrimitivePubkey {
			b, err := encodeDetached(t, raw)
			return raw, b, err
		}
	case FullBytes:
		v := parseLiteral(raw)
		b, err := value.ToBytes(v)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	}

	v := parseLiteral(raw)
	b, err := encodeDetached(t, v)
	return v, b, err
}

package idl

import (
	"github.com/code-payments/code-idl/pkg/idl/value"
	"github.com/code-payments/code-idl/pkg/solana"
)

func (p *Program) parseInstruction(name string, body interface{}, ptr jsonPointer) error {
	obj, err := toObject(body, ptr)
	if err != nil {
		return err
	}

	ix := &Instruction{Name: name}
	if ix.Docs, err = parseDocs(obj, ptr); err != nil {
		return err
	}
	if ix.Discriminator, err = parseDiscriminator(obj, ptr, defaultInstructionDiscriminator(name)); err != nil {
		return err
	}

	if v, key, ok := get(obj, "accounts"); ok && v != nil {
		items, err := toArray(v, ptr.key(key))
		if err != nil {
			return err
		}
		if ix.Accounts, err = p.parseInstructionAccounts(items, ptr.key(key)); err != nil {
			return err
		}
	}

	if v, key, ok := get(obj, "args"); ok {
		if ix.ArgsFlat, err = parseFields(v, ptr.key(key)); err != nil {
			return err
		}
	}
	args, err := p.resolveContent(FlatStruct{Fields: ix.ArgsFlat}, ptr.key("args"))
	if err != nil {
		return err
	}
	ix.Args = args.(FullStruct).Fields

	if v, key, ok := get(obj, "returns"); ok && v != nil {
		if ix.ReturnsFlat, err = parseType(v, ptr.key(key)); err != nil {
			return err
		}
		if ix.Returns, err = p.resolveContent(ix.ReturnsFlat, ptr.key(key)); err != nil {
			return err
		}
	}

	seen := make(map[string]struct{}, len(ix.Accounts))
	for i, account := range ix.Accounts {
		if _, ok := seen[account.Name]; ok {
			return schemaErrorf(ptr.key("accounts").index(i), "duplicate account %q", account.Name)
		}
		seen[account.Name] = struct{}{}
	}

	p.Instructions[name] = ix
	return nil
}

// parseInstructionAccounts flattens nested account groups in order.
func (p *Program) parseInstructionAccounts(items []interface{}, ptr jsonPointer) ([]*InstructionAccount, error) {
	var accounts []*InstructionAccount
	for i, item := range items {
		itemPtr := ptr.index(i)
		obj, err := toObject(item, itemPtr)
		if err != nil {
			return nil, err
		}

		if nested, key, ok := get(obj, "accounts"); ok {
			children, err := toArray(nested, itemPtr.key(key))
			if err != nil {
				return nil, err
			}
			flattened, err := p.parseInstructionAccounts(children, itemPtr.key(key))
			if err != nil {
				return nil, err
			}
			accounts = append(accounts, flattened...)
			continue
		}

		account, err := p.parseInstructionAccount(obj, itemPtr)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (p *Program) parseInstructionAccount(obj *value.Object, ptr jsonPointer) (*InstructionAccount, error) {
	name, ok, err := getString(obj, ptr, "name")
	if err != nil {
		return nil, err
	}
	if !ok || name == "" {
		return nil, schemaErrorf(ptr, "account without a name")
	}

	account := &InstructionAccount{Name: name}
	if account.Docs, err = parseDocs(obj, ptr); err != nil {
		return nil, err
	}
	if account.Signer, err = getBool(obj, ptr, "signer", "isSigner"); err != nil {
		return nil, err
	}
	if account.Writable, err = getBool(obj, ptr, "writable", "isMut", "isWritable"); err != nil {
		return nil, err
	}
	if account.Optional, err = getBool(obj, ptr, "optional", "isOptional"); err != nil {
		return nil, err
	}

	if address, ok, err := getString(obj, ptr, "address"); err != nil {
		return nil, err
	} else if ok {
		account.Address, err = solana.ParsePublicKey(address)
		if err != nil {
			return nil, schemaWrap(ptr.key("address"), err, "invalid account address")
		}
	}

	if v, key, ok := get(obj, "pda"); ok && v != nil {
		pdaPtr := ptr.key(key)
		if ref, isString := v.(string); isString {
			pda, ok := p.Pda(ref)
			if !ok {
				return nil, schemaErrorf(pdaPtr, "unknown pda %q", ref)
			}
			account.Pda = pda
		} else {
			pdaObj, err := toObject(v, pdaPtr)
			if err != nil {
				return nil, err
			}
			if account.Pda, err = p.parsePda(name, pdaObj, pdaPtr); err != nil {
				return nil, err
			}
		}
	}

	return account, nil
}

func (p *Program) parsePdaDef(name string, body interface{}, ptr jsonPointer) error {
	obj, err := toObject(body, ptr)
	if err != nil {
		return err
	}
	pda, err := p.parsePda(name, obj, ptr)
	if err != nil {
		return err
	}
	p.Pdas[name] = pda
	return nil
}

// parsePda reads {seeds, program?}.
func (p *Program) parsePda(name string, obj *value.Object, ptr jsonPointer) (*Pda, error) {
	pda := &Pda{Name: name}

	if v, key, ok := get(obj, "seeds"); ok && v != nil {
		items, err := toArray(v, ptr.key(key))
		if err != nil {
			return nil, err
		}
		for i, item := range items {
			seed, err := p.parseSeed(item, ptr.key(key).index(i))
			if err != nil {
				return nil, err
			}
			pda.Seeds = append(pda.Seeds, seed)
		}
	}

	if v, key, ok := get(obj, "program"); ok && v != nil {
		seed, err := p.parseSeed(v, ptr.key(key))
		if err != nil {
			return nil, err
		}
		pda.Program = seed
	}

	return pda, nil
}

// parseSeed reads a seed. Strings are UTF-8 constants and byte arrays are
// raw constants. Objects are tagged with kind (const, arg, account) or use
// the {arg}, {account}, {value, type} and {constant} shorthands.
func (p *Program) parseSeed(v interface{}, ptr jsonPointer) (PdaSeed, error) {
	switch typed := v.(type) {
	case string:
		return PdaSeedConst{Bytes: []byte(typed)}, nil
	case []interface{}:
		b, err := parseBytes(typed, ptr)
		if err != nil {
			return nil, err
		}
		return PdaSeedConst{Bytes: b}, nil
	case *value.Object:
		return p.parseSeedObject(typed, ptr)
	default:
		return nil, schemaErrorf(ptr, "unsupported seed of kind %T", v)
	}
}

func (p *Program) parseSeedObject(obj *value.Object, ptr jsonPointer) (PdaSeed, error) {
	kind, _, err := getString(obj, ptr, "kind")
	if err != nil {
		return nil, err
	}

	switch {
	case kind == "const":
		b, err := p.parseSeedLiteral(obj, ptr)
		if err != nil {
			return nil, err
		}
		return PdaSeedConst{Bytes: b}, nil

	case kind == "arg":
		path, ok, err := getString(obj, ptr, "path")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, schemaErrorf(ptr, "arg seed without a path")
		}
		return p.argSeed(path, obj, ptr)

	case kind == "account":
		path, ok, err := getString(obj, ptr, "path")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, schemaErrorf(ptr, "account seed without a path")
		}
		accountType, _, err := getString(obj, ptr, "account")
		if err != nil {
			return nil, err
		}
		return PdaSeedAccount{Path: path, AccountType: accountType}, nil

	case kind != "":
		return nil, schemaErrorf(ptr.key("kind"), "unknown seed kind %q", kind)
	}

	if path, ok, err := getString(obj, ptr, "arg"); err != nil {
		return nil, err
	} else if ok {
		return p.argSeed(path, obj, ptr)
	}
	if path, ok, err := getString(obj, ptr, "account"); err != nil {
		return nil, err
	} else if ok {
		accountType, _, err := getString(obj, ptr, "type")
		if err != nil {
			return nil, err
		}
		return PdaSeedAccount{Path: path, AccountType: accountType}, nil
	}
	if name, ok, err := getString(obj, ptr, "constant"); err != nil {
		return nil, err
	} else if ok {
		constant, found := p.Constants[guessMapKey(p.Constants, name)]
		if !found {
			return nil, schemaErrorf(ptr.key("constant"), "unknown constant %q", name)
		}
		return PdaSeedConst{Bytes: constant.Bytes}, nil
	}
	if _, ok := obj.Get("value"); ok {
		b, err := p.parseSeedLiteral(obj, ptr)
		if err != nil {
			return nil, err
		}
		return PdaSeedConst{Bytes: b}, nil
	}

	return nil, schemaErrorf(ptr, "unrecognized seed")
}

func (p *Program) argSeed(path string, obj *value.Object, ptr jsonPointer) (PdaSeed, error) {
	seed := PdaSeedArg{Path: path}

	if typeValue, key, ok := get(obj, "type"); ok && typeValue != nil {
		flat, err := parseType(typeValue, ptr.key(key))
		if err != nil {
			return nil, err
		}
		if seed.Type, err = p.resolveContent(flat, ptr.key(key)); err != nil {
			return nil, err
		}
	}
	return seed, nil
}

// parseSeedLiteral reads the bytes of {value, type?}. Without a type, the
// value is raw bytes or a UTF-8 string.
func (p *Program) parseSeedLiteral(obj *value.Object, ptr jsonPointer) ([]byte, error) {
	raw, rawKey, ok := get(obj, "value")
	if !ok {
		return nil, schemaErrorf(ptr, "seed without a value")
	}

	typeValue, typeKey, ok := get(obj, "type")
	if !ok || typeValue == nil {
		return parseBytes(raw, ptr.key(rawKey))
	}

	flat, err := parseType(typeValue, ptr.key(typeKey))
	if err != nil {
		return nil, err
	}
	full, err := p.resolveContent(flat, ptr.key(typeKey))
	if err != nil {
		return nil, err
	}
	_, b, err := constantValue(full, raw)
	if err != nil {
		return nil, schemaWrap(ptr.key(rawKey), err, "invalid seed value")
	}
	return b, nil
}

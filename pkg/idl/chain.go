package idl

// ProgramChain looks names up across several programs, first match wins.
// Callers use it to layer a local override on top of a published IDL.
type ProgramChain []*Program

func (c ProgramChain) Account(name string) (*Program, *Account, bool) {
	for _, p := range c {
		if account, ok := p.Account(name); ok {
			return p, account, true
		}
	}
	return nil, nil, false
}

func (c ProgramChain) Instruction(name string) (*Program, *Instruction, bool) {
	for _, p := range c {
		if ix, ok := p.Instruction(name); ok {
			return p, ix, true
		}
	}
	return nil, nil, false
}

func (c ProgramChain) Event(name string) (*Program, *Event, bool) {
	for _, p := range c {
		if event, ok := p.Event(name); ok {
			return p, event, true
		}
	}
	return nil, nil, false
}

func (c ProgramChain) ErrorByCode(code uint64) (*Program, *ErrorDef, bool) {
	for _, p := range c {
		if def, ok := p.ErrorByCode(code); ok {
			return p, def, true
		}
	}
	return nil, nil, false
}

// GuessAccount returns the first program with exactly one matching account.
// Ambiguity within a program is reported immediately.
func (c ProgramChain) GuessAccount(data []byte) (*Program, *Account, error) {
	for _, p := range c {
		account, err := p.GuessAccount(data)
		if err == nil {
			return p, account, nil
		}
		if _, ok := err.(*NoMatchError); !ok {
			return nil, nil, err
		}
	}
	return nil, nil, &NoMatchError{Kind: "account", Size: len(data)}
}

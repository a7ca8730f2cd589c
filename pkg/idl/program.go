// Package idl parses program IDL documents and encodes, decodes and derives
// addresses for the accounts, instructions and events they describe.
package idl

import (
	"crypto/ed25519"
	"sort"
	"sync"

	"github.com/code-payments/code-idl/pkg/idl/casing"
)

// Program is the canonical model of one IDL document. It is read-only once
// parsed, apart from the type resolution memo it owns.
type Program struct {
	Metadata ProgramMetadata

	Typedefs     map[string]*Typedef
	Accounts     map[string]*Account
	Instructions map[string]*Instruction
	Events       map[string]*Event
	Errors       map[string]*ErrorDef
	Pdas         map[string]*Pda
	Constants    map[string]*Constant

	memoMu sync.Mutex
	memo   map[string]*FullTypedef
}

type ProgramMetadata struct {
	Name        string
	Address     ed25519.PublicKey
	Version     string
	Spec        string
	Description string
	Docs        []string
}

// Serialization formats that change how a typedef is laid out.
const (
	SerializationBorsh          = "borsh"
	SerializationBytemuck       = "bytemuck"
	SerializationBytemuckUnsafe = "bytemuckunsafe"
)

// Repr kinds.
const (
	ReprRust        = "rust"
	ReprC           = "c"
	ReprTransparent = "transparent"
)

type Typedef struct {
	Name          string
	Docs          []string
	Generics      []TypedefGeneric
	Serialization string
	Repr          *Repr
	Type          FlatType
}

// TypedefGeneric is a generic parameter. Kind is "type" or "const".
type TypedefGeneric struct {
	Kind string
	Name string
}

type Repr struct {
	Kind   string
	Packed bool
	Align  int
}

// usesCLayout reports whether fields are laid out with C alignment padding.
func (t *Typedef) usesCLayout() bool {
	if t.Repr != nil && t.Repr.Packed {
		return false
	}
	return t.Serialization == SerializationBytemuck || t.Serialization == SerializationBytemuckUnsafe
}

type Account struct {
	Name          string
	Docs          []string
	Discriminator []byte
	Space         *int
	Blobs         []AccountBlob
	ContentFlat   FlatType
	Content       FullType
}

// AccountBlob is a fixed byte sequence expected at Offset in account data.
type AccountBlob struct {
	Offset int
	Bytes  []byte
}

type Instruction struct {
	Name          string
	Docs          []string
	Discriminator []byte
	Accounts      []*InstructionAccount
	ArgsFlat      FlatFields
	Args          FullFields
	ReturnsFlat   FlatType
	Returns       FullType
}

type InstructionAccount struct {
	Name     string
	Docs     []string
	Signer   bool
	Writable bool
	Optional bool
	Address  ed25519.PublicKey
	Pda      *Pda
}

type Event struct {
	Name          string
	Docs          []string
	Discriminator []byte
	ContentFlat   FlatType
	Content       FullType
}

type ErrorDef struct {
	Code uint64
	Name string
	Msg  string
}

// Pda describes how an address is derived. A nil Program derives against the
// program that owns the instruction or the Program being queried.
type Pda struct {
	Name    string
	Seeds   []PdaSeed
	Program PdaSeed
}

// PdaSeed is one of PdaSeedConst, PdaSeedArg or PdaSeedAccount.
type PdaSeed interface {
	isPdaSeed()
}

type PdaSeedConst struct {
	Bytes []byte
}

// PdaSeedArg reads an argument by path. A nil Type uses the argument's
// declared type.
type PdaSeedArg struct {
	Path string
	Type FullType
}

// PdaSeedAccount reads an account address when Path has one segment, or a
// field of that account's decoded state otherwise. AccountType names the
// account shape used to decode the state. When empty, the shape is guessed.
type PdaSeedAccount struct {
	Path        string
	AccountType string
}

func (PdaSeedConst) isPdaSeed()   {}
func (PdaSeedArg) isPdaSeed()     {}
func (PdaSeedAccount) isPdaSeed() {}

type Constant struct {
	Name     string
	Docs     []string
	TypeFlat FlatType
	Type     FullType
	Value    interface{}
	Bytes    []byte
}

func newProgram() *Program {
	return &Program{
		Typedefs:     make(map[string]*Typedef),
		Accounts:     make(map[string]*Account),
		Instructions: make(map[string]*Instruction),
		Events:       make(map[string]*Event),
		Errors:       make(map[string]*ErrorDef),
		Pdas:         make(map[string]*Pda),
		Constants:    make(map[string]*Constant),
		memo:         make(map[string]*FullTypedef),
	}
}

// Account returns the account called name, accepting either casing.
func (p *Program) Account(name string) (*Account, bool) {
	a, ok := p.Accounts[guessMapKey(p.Accounts, name)]
	return a, ok
}

// Instruction returns the instruction called name, accepting either casing.
func (p *Program) Instruction(name string) (*Instruction, bool) {
	ix, ok := p.Instructions[guessMapKey(p.Instructions, name)]
	return ix, ok
}

// Event returns the event called name, accepting either casing.
func (p *Program) Event(name string) (*Event, bool) {
	e, ok := p.Events[guessMapKey(p.Events, name)]
	return e, ok
}

// Pda returns the program-level PDA called name, accepting either casing.
func (p *Program) Pda(name string) (*Pda, bool) {
	pda, ok := p.Pdas[guessMapKey(p.Pdas, name)]
	return pda, ok
}

// ErrorByCode returns the error declared with code.
func (p *Program) ErrorByCode(code uint64) (*ErrorDef, bool) {
	for _, e := range p.Errors {
		if e.Code == code {
			return e, true
		}
	}
	return nil, false
}

// Account returns the instruction account called name, accepting either
// casing.
func (ix *Instruction) Account(name string) (*InstructionAccount, bool) {
	name = casing.GuessIntendedKeyFunc(func(key string) bool {
		for _, account := range ix.Accounts {
			if account.Name == key {
				return true
			}
		}
		return false
	}, func() []string {
		names := make([]string, len(ix.Accounts))
		for i, account := range ix.Accounts {
			names[i] = account.Name
		}
		return names
	}, name)

	for _, account := range ix.Accounts {
		if account.Name == name {
			return account, true
		}
	}
	return nil, false
}

func guessMapKey[V any](m map[string]V, name string) string {
	return casing.GuessIntendedKeyFunc(func(key string) bool {
		_, ok := m[key]
		return ok
	}, func() []string { return sortedNames(m) }, name)
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package idl

import (
	"bytes"
	"crypto/sha256"

	"github.com/code-payments/code-idl/pkg/idl/casing"
)

const discriminatorSize = 8

// Anchor namespaces used to derive default discriminators.
const (
	namespaceAccount     = "account"
	namespaceInstruction = "global"
	namespaceEvent       = "event"
)

// eventIxTag prefixes events emitted through a self-CPI instead of logs.
var eventIxTag = []byte{0xe4, 0x45, 0xa5, 0x2e, 0x51, 0xcb, 0x9a, 0x1d}

// DefaultDiscriminator is the Anchor discriminator: the first 8 bytes of
// sha256("<namespace>:<name>").
func DefaultDiscriminator(namespace, name string) []byte {
	h := sha256.Sum256([]byte(namespace + ":" + name))
	return h[:discriminatorSize]
}

func defaultAccountDiscriminator(name string) []byte {
	return DefaultDiscriminator(namespaceAccount, name)
}

// Instruction names are hashed in snake_case regardless of their IDL casing.
func defaultInstructionDiscriminator(name string) []byte {
	return DefaultDiscriminator(namespaceInstruction, casing.ToSnake(name))
}

func defaultEventDiscriminator(name string) []byte {
	return DefaultDiscriminator(namespaceEvent, name)
}

// Check reports whether data could be this account: the discriminator is a
// prefix, the size equals Space when declared, and every blob matches.
func (a *Account) Check(data []byte) bool {
	if !bytes.HasPrefix(data, a.Discriminator) {
		return false
	}
	if a.Space != nil && *a.Space != len(data) {
		return false
	}
	for _, blob := range a.Blobs {
		end := blob.Offset + len(blob.Bytes)
		if blob.Offset < 0 || end > len(data) || !bytes.Equal(data[blob.Offset:end], blob.Bytes) {
			return false
		}
	}
	return true
}

// Check reports whether data starts with the instruction's discriminator.
func (ix *Instruction) Check(data []byte) bool {
	return bytes.HasPrefix(data, ix.Discriminator)
}

// Check reports whether data starts with the event's discriminator.
func (e *Event) Check(data []byte) bool {
	return bytes.HasPrefix(data, e.Discriminator)
}

// GuessAccount returns the single account whose shape matches data.
func (p *Program) GuessAccount(data []byte) (*Account, error) {
	return guessOne("account", p.Accounts, data, (*Account).Check)
}

// GuessInstruction returns the single instruction whose discriminator
// prefixes data.
func (p *Program) GuessInstruction(data []byte) (*Instruction, error) {
	return guessOne("instruction", p.Instructions, data, (*Instruction).Check)
}

// GuessEvent returns the single event whose discriminator prefixes data.
func (p *Program) GuessEvent(data []byte) (*Event, error) {
	return guessOne("event", p.Events, data, (*Event).Check)
}

func guessOne[V any](kind string, candidates map[string]V, data []byte, check func(V, []byte) bool) (V, error) {
	var zero V

	var matches []string
	for _, name := range sortedNames(candidates) {
		if check(candidates[name], data) {
			matches = append(matches, name)
		}
	}

	switch len(matches) {
	case 0:
		return zero, &NoMatchError{Kind: kind, Size: len(data)}
	case 1:
		return candidates[matches[0]], nil
	default:
		return zero, &AmbiguousMatchError{Kind: kind, Candidates: matches}
	}
}

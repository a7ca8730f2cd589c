package idl

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/code-idl/pkg/solana"
)

// EncodeData serializes instruction arguments with the discriminator.
func (ix *Instruction) EncodeData(args interface{}, opts ...CodecOption) ([]byte, error) {
	body, err := Encode(FullStruct{Fields: ix.Args}, args, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot encode instruction %s", ix.Name)
	}
	return append(append([]byte{}, ix.Discriminator...), body...), nil
}

// DecodeData checks the discriminator and decodes the instruction arguments.
func (ix *Instruction) DecodeData(data []byte, opts ...CodecOption) (interface{}, error) {
	if !bytes.HasPrefix(data, ix.Discriminator) {
		return nil, errors.Wrapf(ErrDiscriminator, "instruction %s", ix.Name)
	}
	args, _, err := Decode(FullStruct{Fields: ix.Args}, data[len(ix.Discriminator):], opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode instruction %s", ix.Name)
	}
	return args, nil
}

// DecodeReturn decodes the instruction's return data.
func (ix *Instruction) DecodeReturn(data []byte, opts ...CodecOption) (interface{}, error) {
	if ix.Returns == nil {
		return nil, errors.Errorf("instruction %s declares no return type", ix.Name)
	}
	v, _, err := Decode(ix.Returns, data, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode return of %s", ix.Name)
	}
	return v, nil
}

// DecodeAddresses maps positional account keys back to account names. An
// optional account passed as the program id is treated as omitted.
func (ix *Instruction) DecodeAddresses(programID ed25519.PublicKey, keys []ed25519.PublicKey) (map[string]ed25519.PublicKey, error) {
	if len(keys) < len(ix.Accounts) {
		var missing []string
		for _, account := range ix.Accounts[len(keys):] {
			if !account.Optional {
				missing = append(missing, account.Name)
			}
		}
		if len(missing) > 0 {
			return nil, errors.Wrapf(ErrMissingAccount, "instruction %s: %v", ix.Name, missing)
		}
	}

	addresses := make(map[string]ed25519.PublicKey, len(ix.Accounts))
	for i, account := range ix.Accounts {
		if i >= len(keys) {
			break
		}
		if account.Optional && bytes.Equal(keys[i], programID) {
			continue
		}
		addresses[account.Name] = keys[i]
	}
	return addresses, nil
}

// BuildInstruction assembles an instruction from named addresses and
// arguments. Missing optional accounts are passed as the program id.
func (p *Program) BuildInstruction(ix *Instruction, programID ed25519.PublicKey, addresses map[string]ed25519.PublicKey, args interface{}, opts ...CodecOption) (solana.Instruction, error) {
	data, err := ix.EncodeData(args, opts...)
	if err != nil {
		return solana.Instruction{}, err
	}

	metas := make([]solana.AccountMeta, 0, len(ix.Accounts))
	for _, account := range ix.Accounts {
		address, ok := lookupAddress(addresses, account.Name)
		if !ok {
			if !account.Optional {
				return solana.Instruction{}, errors.Wrapf(ErrMissingAccount, "instruction %s: %s", ix.Name, account.Name)
			}
			metas = append(metas, solana.NewReadonlyAccountMeta(programID, false))
			continue
		}

		if account.Writable {
			metas = append(metas, solana.NewAccountMeta(address, account.Signer))
		} else {
			metas = append(metas, solana.NewReadonlyAccountMeta(address, account.Signer))
		}
	}

	return solana.NewInstruction(programID, data, metas...), nil
}

// DecodedInstruction is an instruction matched against a Program.
type DecodedInstruction struct {
	Instruction *Instruction
	Addresses   map[string]ed25519.PublicKey
	Args        interface{}
}

// DecodeInstruction guesses which instruction built ix and decodes its
// accounts and arguments.
func (p *Program) DecodeInstruction(ix solana.Instruction, opts ...CodecOption) (*DecodedInstruction, error) {
	matched, err := p.GuessInstruction(ix.Data)
	if err != nil {
		return nil, err
	}

	keys := make([]ed25519.PublicKey, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		keys[i] = meta.PublicKey
	}
	addresses, err := matched.DecodeAddresses(ix.Program, keys)
	if err != nil {
		return nil, err
	}

	args, err := matched.DecodeData(ix.Data, opts...)
	if err != nil {
		return nil, err
	}

	return &DecodedInstruction{
		Instruction: matched,
		Addresses:   addresses,
		Args:        args,
	}, nil
}

func lookupAddress(addresses map[string]ed25519.PublicKey, name string) (ed25519.PublicKey, bool) {
	address, ok := addresses[guessMapKey(addresses, name)]
	return address, ok && address != nil
}

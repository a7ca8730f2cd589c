package idl

import (
	"bytes"

	"github.com/pkg/errors"
)

// Encode serializes state with the account discriminator. Declared blobs are
// written at their offsets, and encoded state that overlaps a blob must agree
// with it. The result is zero-padded to Space when one is declared.
func (a *Account) Encode(state interface{}, opts ...CodecOption) ([]byte, error) {
	body, err := Encode(a.Content, state, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot encode account %s", a.Name)
	}

	data := make([]byte, 0, len(a.Discriminator)+len(body))
	data = append(data, a.Discriminator...)
	data = append(data, body...)

	for _, blob := range a.Blobs {
		end := blob.Offset + len(blob.Bytes)
		if overlap := min(end, len(data)) - blob.Offset; overlap > 0 {
			if !bytes.Equal(data[blob.Offset:blob.Offset+overlap], blob.Bytes[:overlap]) {
				return nil, errors.Wrapf(
					invalidValue(rootPath, "bytes at offset %d conflict with the account blob", blob.Offset),
					"cannot encode account %s", a.Name,
				)
			}
		}
		if end > len(data) {
			data = append(data, make([]byte, end-len(data))...)
		}
		copy(data[blob.Offset:end], blob.Bytes)
	}

	if a.Space != nil {
		if len(data) > *a.Space {
			return nil, errors.Errorf("account %s encodes to %d bytes, space is %d", a.Name, len(data), *a.Space)
		}
		data = append(data, make([]byte, *a.Space-len(data))...)
	}
	return data, nil
}

// Decode checks the discriminator and decodes the account state. Bytes after
// the state are ignored.
func (a *Account) Decode(data []byte, opts ...CodecOption) (interface{}, error) {
	if !bytes.HasPrefix(data, a.Discriminator) {
		return nil, errors.Wrapf(ErrDiscriminator, "account %s", a.Name)
	}
	state, _, err := Decode(a.Content, data[len(a.Discriminator):], opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode account %s", a.Name)
	}
	return state, nil
}

// DecodeAccount guesses the account shape of data and decodes it.
func (p *Program) DecodeAccount(data []byte, opts ...CodecOption) (*Account, interface{}, error) {
	account, err := p.GuessAccount(data)
	if err != nil {
		return nil, nil, err
	}
	state, err := account.Decode(data, opts...)
	if err != nil {
		return nil, nil, err
	}
	return account, state, nil
}

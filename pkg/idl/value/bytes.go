package value

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// Byte encodings accepted in wrapper objects such as {"base58": "..."}.
const (
	EncodingBase58 = "base58"
	EncodingBase64 = "base64"
	EncodingHex    = "hex"
	EncodingUtf8   = "utf8"
)

// ToBytes converts a dynamic value into raw bytes. Accepted inputs are byte
// slices, arrays of numbers, plain strings (taken as UTF-8) and single-key
// encoding wrappers ({"base58": s}, {"base64": s}, {"hex": s}, {"utf8": s}).
func ToBytes(v interface{}) ([]byte, error) {
	switch typed := v.(type) {
	case []byte:
		return typed, nil
	case ed25519.PublicKey:
		return []byte(typed), nil
	case string:
		return []byte(typed), nil
	case []interface{}:
		out := make([]byte, len(typed))
		for i, item := range typed {
			n, err := ToBigInt(item)
			if err != nil {
				return nil, errors.Wrapf(err, "byte at index %d", i)
			}
			if !InRange[uint8](n) {
				return nil, errors.Errorf("byte at index %d out of range: %s", i, n)
			}
			out[i] = byte(n.Uint64())
		}
		return out, nil
	case map[string]interface{}:
		return ToBytes(FromMap(typed))
	case *Object:
		if typed.Len() != 1 {
			return nil, errors.New("byte encoding wrapper must have exactly one key")
		}
		encoding := typed.Keys()[0]
		raw, _ := typed.Get(encoding)
		s, ok := raw.(string)
		if !ok {
			return nil, errors.Errorf("byte encoding wrapper %q must hold a string", encoding)
		}
		return DecodeString(encoding, s)
	default:
		return nil, errors.Errorf("unsupported bytes value of type %T", v)
	}
}

// DecodeString decodes s using one of the named byte encodings.
func DecodeString(encoding, s string) ([]byte, error) {
	switch encoding {
	case EncodingBase58:
		b, err := base58.Decode(s)
		return b, errors.Wrap(err, "invalid base58")
	case EncodingBase64:
		b, err := base64.StdEncoding.DecodeString(s)
		return b, errors.Wrap(err, "invalid base64")
	case EncodingHex:
		b, err := hex.DecodeString(s)
		return b, errors.Wrap(err, "invalid hex")
	case EncodingUtf8:
		return []byte(s), nil
	default:
		return nil, errors.Errorf("unknown byte encoding %q", encoding)
	}
}

// ToAddress converts a dynamic value into a 32-byte address. Strings are
// base58, anything else goes through ToBytes.
func ToAddress(v interface{}) (ed25519.PublicKey, error) {
	var b []byte
	var err error
	if s, ok := v.(string); ok {
		b, err = base58.Decode(s)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid base58 address %q", s)
		}
	} else {
		b, err = ToBytes(v)
		if err != nil {
			return nil, err
		}
	}

	if len(b) != ed25519.PublicKeySize {
		return nil, errors.Errorf("address must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	return ed25519.PublicKey(b), nil
}

package value

import (
	"encoding/json"
	"math"
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

var ErrNotANumber = errors.New("value is not a number")

// IntegerToBig widens any Go integer to a *big.Int.
func IntegerToBig[T constraints.Integer](v T) *big.Int {
	if v < 0 {
		return big.NewInt(int64(v))
	}
	return new(big.Int).SetUint64(uint64(v))
}

// InRange reports whether n fits in T.
func InRange[T constraints.Integer](n *big.Int) bool {
	var zero T
	minValue := IntegerToBig(minOf(zero))
	maxValue := IntegerToBig(maxOf(zero))
	return n.Cmp(minValue) >= 0 && n.Cmp(maxValue) <= 0
}

func minOf[T constraints.Integer](zero T) T {
	if ^zero > 0 {
		return 0
	}
	// Signed: the minimum has only the sign bit set
	return ^maxOf(zero)
}

func maxOf[T constraints.Integer](zero T) T {
	allOnes := ^zero
	if allOnes > 0 {
		return allOnes
	}
	// Signed: clear the sign bit
	width := uint(0)
	for v := allOnes; v != 0; v <<= 1 {
		width++
	}
	return T(1<<(width-1) - 1)
}

// ToBigInt converts a dynamic integer value to a *big.Int. Accepted inputs are
// every Go integer kind, integral floats, json.Number, *big.Int and decimal or
// 0x-prefixed strings.
func ToBigInt(v interface{}) (*big.Int, error) {
	switch typed := v.(type) {
	case int:
		return IntegerToBig(typed), nil
	case int8:
		return IntegerToBig(typed), nil
	case int16:
		return IntegerToBig(typed), nil
	case int32:
		return IntegerToBig(typed), nil
	case int64:
		return IntegerToBig(typed), nil
	case uint:
		return IntegerToBig(typed), nil
	case uint8:
		return IntegerToBig(typed), nil
	case uint16:
		return IntegerToBig(typed), nil
	case uint32:
		return IntegerToBig(typed), nil
	case uint64:
		return IntegerToBig(typed), nil
	case *big.Int:
		if typed == nil {
			return nil, ErrNotANumber
		}
		return new(big.Int).Set(typed), nil
	case big.Int:
		return new(big.Int).Set(&typed), nil
	case float32:
		return floatToBig(float64(typed))
	case float64:
		return floatToBig(typed)
	case json.Number:
		return parseBigInt(string(typed))
	case string:
		return parseBigInt(typed)
	default:
		return nil, errors.Wrapf(ErrNotANumber, "unsupported integer value of type %T", v)
	}
}

func floatToBig(f float64) (*big.Int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, errors.Wrapf(ErrNotANumber, "%v is not an integer", f)
	}
	n, _ := big.NewFloat(f).Int(nil)
	return n, nil
}

func parseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)

	n, ok := new(big.Int).SetString(s, 0)
	if ok {
		return n, nil
	}

	// json.Number may carry an exponent, e.g. 1e3
	f, ok := new(big.Float).SetPrec(256).SetString(s)
	if !ok || !f.IsInt() {
		return nil, errors.Wrapf(ErrNotANumber, "%q is not an integer", s)
	}
	n, _ = f.Int(nil)
	return n, nil
}

// ToFloat64 converts a dynamic numeric value to a float64.
func ToFloat64(v interface{}) (float64, error) {
	switch typed := v.(type) {
	case float64:
		return typed, nil
	case float32:
		return float64(typed), nil
	case json.Number:
		f, err := typed.Float64()
		if err != nil {
			return 0, errors.Wrapf(ErrNotANumber, "%q is not a float", string(typed))
		}
		return f, nil
	case string:
		return ToFloat64(json.Number(strings.TrimSpace(typed)))
	default:
		n, err := ToBigInt(v)
		if err != nil {
			return 0, err
		}
		f, _ := new(big.Float).SetInt(n).Float64()
		return f, nil
	}
}

// ToBool converts a dynamic boolean value. The strings "true" and "false" are
// accepted as well.
func ToBool(v interface{}) (bool, error) {
	switch typed := v.(type) {
	case bool:
		return typed, nil
	case string:
		switch typed {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, errors.Errorf("unsupported boolean value of type %T", v)
}

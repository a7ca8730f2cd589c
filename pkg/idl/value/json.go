package value

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// ParseJSON decodes a JSON document into the dynamic value tree, keeping
// object key order. Numbers are kept as json.Number so that integers wider
// than 53 bits survive.
func ParseJSON(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseJSONValue(dec)
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected trailing data after json value")
	}

	return v, nil
}

func parseJSONValue(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(err, "invalid json")
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		o := NewObject()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, errors.Wrap(err, "invalid json object key")
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, errors.Errorf("invalid json object key: %v", keyTok)
			}

			v, err := parseJSONValue(dec)
			if err != nil {
				return nil, err
			}
			o.Set(key, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, errors.Wrap(err, "unterminated json object")
		}
		return o, nil
	case '[':
		items := make([]interface{}, 0)
		for dec.More() {
			v, err := parseJSONValue(dec)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, errors.Wrap(err, "unterminated json array")
		}
		return items, nil
	default:
		return nil, errors.Errorf("unexpected json delimiter %q", delim)
	}
}

// Normalize converts Go maps found anywhere in v into Objects (keys sorted),
// leaving every other value untouched.
func Normalize(v interface{}) interface{} {
	switch typed := v.(type) {
	case map[string]interface{}:
		o := NewObject()
		for _, key := range sortedKeys(typed) {
			o.Set(key, Normalize(typed[key]))
		}
		return o
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, item := range typed {
			out[i] = Normalize(item)
		}
		return out
	default:
		return v
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

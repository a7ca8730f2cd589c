// Package value holds the dynamic value tree exchanged with the IDL codec:
// nil, bool, integers (uint64, int64, *big.Int), float64, string, []byte,
// []interface{} and the insertion-ordered *Object.
package value

import (
	"bytes"
	"encoding/json"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/code-payments/code-idl/pkg/idl/casing"
)

// Object is a string-keyed mapping that remembers insertion order. Decoded
// structs are returned as Objects so that fields come back in declaration
// order.
type Object struct {
	entries *linkedhashmap.Map

	// linkedhashmap reports nil values as absent, so presence is kept here.
	present map[string]struct{}
}

// NewObject builds an Object from alternating key/value arguments. It panics
// on an odd argument count or a non-string key, since that is a programming
// error at the call site.
func NewObject(kv ...interface{}) *Object {
	if len(kv)%2 != 0 {
		panic("value: NewObject requires key/value pairs")
	}

	o := &Object{}
	o.init()
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic("value: NewObject keys must be strings")
		}
		o.Set(key, kv[i+1])
	}
	return o
}

// FromMap builds an Object from a Go map. Go maps carry no order, so keys are
// inserted sorted.
func FromMap(m map[string]interface{}) *Object {
	o := NewObject()
	for _, key := range sortedKeys(m) {
		o.Set(key, m[key])
	}
	return o
}

func (o *Object) init() {
	if o.entries == nil {
		o.entries = linkedhashmap.New()
		o.present = make(map[string]struct{})
	}
}

// Set inserts or replaces key. Replacing keeps the original position.
func (o *Object) Set(key string, v interface{}) {
	o.init()
	o.entries.Put(key, v)
	o.present[key] = struct{}{}
}

// Get returns the value stored under the exact key. A key set to nil is
// present with a nil value.
func (o *Object) Get(key string) (interface{}, bool) {
	if !o.Has(key) {
		return nil, false
	}
	v, _ := o.entries.Get(key)
	return v, true
}

// Has reports whether the exact key is present.
func (o *Object) Has(key string) bool {
	if o == nil || o.present == nil {
		return false
	}
	_, ok := o.present[key]
	return ok
}

// Lookup finds key using the casing rules of casing.GuessIntendedKey, so
// camelCase and snake_case spellings are interchangeable. It returns the key
// that actually matched.
func (o *Object) Lookup(key string) (string, interface{}, bool) {
	actual := casing.GuessIntendedKeyFunc(o.Has, o.Keys, key)
	v, ok := o.Get(actual)
	return actual, v, ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil || o.entries == nil {
		return nil
	}

	raw := o.entries.Keys()
	keys := make([]string, len(raw))
	for i, k := range raw {
		keys[i] = k.(string)
	}
	return keys
}

// Len returns the number of entries.
func (o *Object) Len() int {
	if o == nil || o.entries == nil {
		return 0
	}
	return o.entries.Size()
}

// Each calls fn for every entry in insertion order.
func (o *Object) Each(fn func(key string, v interface{})) {
	if o == nil || o.entries == nil {
		return
	}
	it := o.entries.Iterator()
	for it.Next() {
		fn(it.Key().(string), it.Value())
	}
}

// MarshalJSON writes the entries in insertion order. Byte slices are written
// as arrays of numbers, matching what the codec accepts back.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	var err error
	first := true
	o.Each(func(key string, v interface{}) {
		if err != nil {
			return
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		var encodedKey, encodedValue []byte
		if encodedKey, err = json.Marshal(key); err != nil {
			return
		}
		if encodedValue, err = json.Marshal(JSONCompatible(v)); err != nil {
			return
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')
		buf.Write(encodedValue)
	})
	if err != nil {
		return nil, err
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// JSONCompatible rewrites byte slices, at any depth outside of Objects, into
// number arrays so encoding/json does not base64 them.
func JSONCompatible(v interface{}) interface{} {
	switch typed := v.(type) {
	case []byte:
		out := make([]interface{}, len(typed))
		for i, b := range typed {
			out[i] = uint64(b)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, item := range typed {
			out[i] = JSONCompatible(item)
		}
		return out
	default:
		return v
	}
}

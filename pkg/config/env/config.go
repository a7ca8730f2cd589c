// Package env reads config values from environment variables.
package env

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/code-payments/code-idl/pkg/config"
	"github.com/code-payments/code-idl/pkg/config/wrapper"
)

type variable struct {
	val string
	set bool
}

// NewConfig returns a config holding the upper-cased environment variable
// key as read at construction. Surrounding whitespace is ignored and a blank
// variable counts as unset.
func NewConfig(key string) config.Config {
	val := strings.TrimSpace(os.Getenv(strings.ToUpper(key)))
	return &variable{val: val, set: len(val) > 0}
}

func (v *variable) Get(_ context.Context) (interface{}, error) {
	if !v.set {
		return nil, config.ErrNoValue
	}
	return []byte(v.val), nil
}

func (v *variable) Shutdown() {}

// Source builds typed configs from variables that share a prefix, such as
// IDL_FETCHER_.
type Source struct {
	prefix string
}

func NewSource(prefix string) Source {
	return Source{prefix: strings.ToUpper(prefix)}
}

// Key is the variable name read for name.
func (s Source) Key(name string) string {
	return s.prefix + strings.ToUpper(name)
}

func (s Source) Uint64(name string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(s.Key(name)), defaultValue)
}

func (s Source) Float64(name string, defaultValue float64) config.Float64 {
	return wrapper.NewFloat64Config(NewConfig(s.Key(name)), defaultValue)
}

func (s Source) String(name string, defaultValue string) config.String {
	return wrapper.NewStringConfig(NewConfig(s.Key(name)), defaultValue)
}

func (s Source) Bool(name string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(s.Key(name)), defaultValue)
}

func (s Source) Duration(name string, defaultValue time.Duration) config.Duration {
	return wrapper.NewDurationConfig(NewConfig(s.Key(name)), defaultValue)
}

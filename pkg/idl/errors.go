package idl

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrMissingAccount  = errors.New("missing instruction account")
	ErrNoFetcher       = errors.New("account state is required but no fetcher was provided")
	ErrUnknownName     = errors.New("unknown name")
	ErrDiscriminator   = errors.New("discriminator mismatch")
	ErrUnresolvedType  = errors.New("type is still being resolved")
	ErrMaxDepthReached = errors.New("maximum nesting depth reached")
)

// SchemaError reports a malformed schema document. Path is a JSON pointer to
// the offending node.
type SchemaError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaError) Error() string {
	path := e.Path
	if path == "" {
		path = "/"
	}
	if e.Cause != nil {
		return fmt.Sprintf("schema error at %s: %s: %v", path, e.Message, e.Cause)
	}
	return fmt.Sprintf("schema error at %s: %s", path, e.Message)
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// TypeResolutionError reports an unknown typedef, a generic arity mismatch or
// a layout that cannot be computed.
type TypeResolutionError struct {
	Typedef string
	Message string
}

func (e *TypeResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve type %q: %s", e.Typedef, e.Message)
}

// TruncatedDataError reports a decode that ran out of bytes.
type TruncatedDataError struct {
	Path      string
	Offset    int
	Needed    int
	Remaining int
}

func (e *TruncatedDataError) Error() string {
	return fmt.Sprintf("truncated data at %s: need %d bytes at offset %d, %d remaining", e.Path, e.Needed, e.Offset, e.Remaining)
}

// MissingFieldError reports a struct field absent from the value being
// encoded.
type MissingFieldError struct {
	Path  string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q at %s", e.Field, e.Path)
}

// UnknownVariantError reports an enum value or discriminant that matches no
// declared variant.
type UnknownVariantError struct {
	Path    string
	Variant string
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("unknown enum variant %s at %s", e.Variant, e.Path)
}

// InvalidValueError reports a value of the wrong kind or out of range for its
// type, or malformed bytes that are not a truncation.
type InvalidValueError struct {
	Path    string
	Message string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value at %s: %s", e.Path, e.Message)
}

// NoMatchError reports bytes that match none of the declared shapes.
type NoMatchError struct {
	Kind string
	Size int
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no %s matches the %d bytes of data", e.Kind, e.Size)
}

// AmbiguousMatchError reports bytes that match more than one declared shape.
type AmbiguousMatchError struct {
	Kind       string
	Candidates []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("ambiguous %s match: %s", e.Kind, strings.Join(e.Candidates, ", "))
}

// UnresolvedDependencyError reports an instruction account whose address
// could not be derived because its seeds depend on accounts that are unknown.
type UnresolvedDependencyError struct {
	Account string
	Missing []string
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("cannot resolve account %q: missing %s", e.Account, strings.Join(e.Missing, ", "))
}

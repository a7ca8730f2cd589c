package metrics

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type lookupError struct{}

func (*lookupError) Error() string { return "lookup failed" }

func TestErrorKind(t *testing.T) {
	sentinel := errors.New("unknown name")

	for _, tc := range []struct {
		err      error
		expected string
	}{
		{nil, ""},
		{&lookupError{}, "*metrics.lookupError"},
		{errors.Wrap(&lookupError{}, "pda receipt"), "*metrics.lookupError"},
		{errors.Wrapf(sentinel, "account %s", "Vault"), "unknown name"},
		{stderrors.New("plain"), "plain"},
	} {
		assert.Equal(t, tc.expected, ErrorKind(tc.err))
	}
}

func TestMethodTracer_WithoutTransaction(t *testing.T) {
	tracer := TraceMethodCall(context.Background(), "idl.program", "FindPda")
	assert.Nil(t, tracer)

	tracer.AddAttribute(AttributeProgram, "vault")
	tracer.AddAttributes(map[string]interface{}{AttributeInstruction: "deposit"})
	tracer.OnError(errors.New("boom"))
	tracer.End()
}

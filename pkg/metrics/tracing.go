package metrics

import (
	"context"
	"fmt"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
)

// Segment attribute keys shared by traced IDL operations.
const (
	AttributeProgram     = "idl.program"
	AttributeInstruction = "idl.instruction"
	AttributeAccount     = "idl.account"
	AttributeErrorKind   = "error.kind"
)

// MethodTracer is a New Relic segment for one method call. A nil tracer,
// returned when ctx carries no transaction, ignores every call.
type MethodTracer struct {
	name string
	txn  *newrelic.Transaction
	seg  *newrelic.Segment
}

// TraceMethodCall starts a segment named "<structOrPackageName> <methodName>"
// in the transaction carried by ctx.
func TraceMethodCall(ctx context.Context, structOrPackageName, methodName string) *MethodTracer {
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return nil
	}

	name := fmt.Sprintf("%s %s", structOrPackageName, methodName)
	return &MethodTracer{
		name: name,
		txn:  txn,
		seg:  txn.StartSegment(name),
	}
}

func (t *MethodTracer) AddAttribute(key string, value interface{}) {
	if t == nil {
		return
	}
	t.seg.AddAttribute(key, value)
}

// AddAttributes adds every non-empty attribute.
func (t *MethodTracer) AddAttributes(attributes map[string]interface{}) {
	for key, value := range attributes {
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		t.AddAttribute(key, value)
	}
}

// OnError notices err on the transaction, classed by its ErrorKind so typed
// failures such as unresolved PDA dependencies group together.
func (t *MethodTracer) OnError(err error) {
	if t == nil || err == nil {
		return
	}

	kind := ErrorKind(err)
	t.seg.AddAttribute(AttributeErrorKind, kind)
	t.txn.NoticeError(newrelic.Error{
		Message: err.Error(),
		Class:   kind,
		Attributes: map[string]interface{}{
			"method": t.name,
		},
	})
}

func (t *MethodTracer) End() {
	if t == nil {
		return
	}
	t.seg.End()
}

// ErrorKind is the Go type of err's root cause, such as
// "*idl.UnresolvedDependencyError". Sentinel errors created with errors.New
// share a type, so they are reported by message.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	cause := errors.Cause(err)
	kind := fmt.Sprintf("%T", cause)
	if kind == "*errors.fundamental" || kind == "*errors.errorString" {
		return cause.Error()
	}
	return kind
}

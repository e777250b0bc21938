package binding

import (
	"context"
	"fmt"
	"reflect"

	"github.com/nats-io/nats.go"

	brokerpkg "github.com/subwire/subwire/internal/engine/broker"
	errspkg "github.com/subwire/subwire/internal/engine/errors"
	subjectpkg "github.com/subwire/subwire/internal/engine/subject"
)

// Kind identifies the binding strategy chosen for one parameter.
type Kind int

const (
	// KindDependency invokes the parameter's dependency descriptor.
	KindDependency Kind = iota
	// KindClient binds the broker client owning the subscription.
	KindClient
	// KindPayload binds the raw payload bytes.
	KindPayload
	// KindRawMessage binds the full inbound message.
	KindRawMessage
	// KindSubject binds the inbound subject string.
	KindSubject
	// KindReply binds the inbound reply subject.
	KindReply
	// KindPlaceholder binds the subject token recorded for the parameter
	// name in the placeholder table.
	KindPlaceholder
)

func (k Kind) String() string {
	switch k {
	case KindDependency:
		return "dependency"
	case KindClient:
		return "client"
	case KindPayload:
		return "payload"
	case KindRawMessage:
		return "raw_message"
	case KindSubject:
		return "subject"
	case KindReply:
		return "reply"
	case KindPlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// Rule is the registration-time resolution of one callback parameter. The
// ordered rule list fully determines argument extraction; no introspection
// happens at dispatch time.
type Rule struct {
	Kind  Kind
	Name  string
	Index int // token index, placeholder rules only

	typ reflect.Type
	dep *Dep
}

var (
	ctxType     = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType     = reflect.TypeOf((*error)(nil)).Elem()
	msgType     = reflect.TypeOf((*nats.Msg)(nil))
	bytesType   = reflect.TypeOf([]byte(nil))
	clientType  = reflect.TypeOf((*brokerpkg.Client)(nil)).Elem()
	anyType     = reflect.TypeOf((*any)(nil)).Elem()
	subjectType = reflect.TypeOf(Subject(""))
	replyType   = reflect.TypeOf(Reply(""))
)

// Inspect classifies every parameter of fn into exactly one binding rule,
// using the placeholder table compiled from the same registration's subject
// pattern. It is pure and runs once per registration.
//
// A leading context.Context parameter belongs to the dispatch contract and is
// not inspected. The params list describes the remaining parameters in order;
// it may be shorter than the parameter list, in which case trailing
// parameters are anonymous and can only bind by declared type.
func Inspect(fn any, params []Param, table subjectpkg.Placeholders) ([]Rule, error) {
	if fn == nil {
		return nil, errspkg.ErrCallbackRequired
	}
	typ := reflect.TypeOf(fn)
	if typ.Kind() != reflect.Func {
		return nil, fmt.Errorf("%T: %w", fn, errspkg.ErrNotAFunction)
	}

	offset := 0
	if typ.NumIn() > 0 && typ.In(0) == ctxType {
		offset = 1
	}
	declared := typ.NumIn() - offset
	if len(params) > declared {
		return nil, fmt.Errorf("%d descriptors for %d parameters: %w", len(params), declared, errspkg.ErrParameterCount)
	}

	rules := make([]Rule, declared)
	for i := 0; i < declared; i++ {
		var param Param
		if i < len(params) {
			param = params[i]
		}
		rule, err := classify(param, typ.In(i+offset), table)
		if err != nil {
			return nil, fmt.Errorf("parameter %d (%q): %w", i, param.Name, err)
		}
		rules[i] = rule
	}
	return rules, nil
}

// classify resolves one parameter, first match wins. The order matters: a
// payload-typed parameter must never be mistaken for a placeholder sharing
// its name.
func classify(param Param, typ reflect.Type, table subjectpkg.Placeholders) (Rule, error) {
	rule := Rule{Name: param.Name, typ: typ}

	if param.Default != nil {
		dep, ok := param.Default.(*Dep)
		if !ok {
			return Rule{}, fmt.Errorf("default %T is not a dependency descriptor: %w", param.Default, errspkg.ErrUnresolvableParameter)
		}
		rule.Kind = KindDependency
		rule.dep = dep
		return rule, nil
	}

	switch typ {
	case clientType:
		rule.Kind = KindClient
		return rule, nil
	case bytesType:
		rule.Kind = KindPayload
		return rule, nil
	case msgType:
		rule.Kind = KindRawMessage
		return rule, nil
	case subjectType:
		rule.Kind = KindSubject
		return rule, nil
	case replyType:
		rule.Kind = KindReply
		return rule, nil
	}

	// An untyped (any) parameter whose name matches a placeholder binds the
	// placeholder value, not the raw message.
	if index, ok := table[param.Name]; ok && (typ.Kind() == reflect.String || typ == anyType) {
		rule.Kind = KindPlaceholder
		rule.Index = index
		return rule, nil
	}

	if typ == anyType {
		rule.Kind = KindRawMessage
		return rule, nil
	}

	return Rule{}, fmt.Errorf("type %s: %w", typ, errspkg.ErrUnresolvableParameter)
}

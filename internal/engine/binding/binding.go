// Package binding classifies callback parameters into binding rules at
// registration time and compiles them into an argument extractor that runs
// for every delivered message.
//
// A callback is an ordinary Go function of the form
//
//	func(ctx context.Context, p1 T1, p2 T2, ...) (R, error)
//
// where the leading context and the trailing result/error are optional. Each
// remaining parameter is described by a Param carrying its name and optional
// default, and is resolved exactly once into one rule: dependency, client,
// payload, raw message, subject, reply, or placeholder value.
package binding

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/tidwall/gjson"

	brokerpkg "github.com/subwire/subwire/internal/engine/broker"
	errspkg "github.com/subwire/subwire/internal/engine/errors"
)

// Subject is bindable by declared type and receives the full subject of the
// inbound message.
type Subject string

// Reply is bindable by declared type and receives the inbound message's
// reply subject, empty when the publisher expects no response.
type Reply string

// Param describes one callback parameter: its name, used for placeholder
// matching, and an optional default, which must be a dependency descriptor.
// The declared type is taken from the callback's signature.
type Param struct {
	Name    string
	Default any
}

// P is shorthand for a named parameter without a default.
func P(name string) Param { return Param{Name: name} }

// D is shorthand for a parameter bound to a dependency descriptor.
func D(dep *Dep) Param { return Param{Default: dep} }

// Dep is a dependency descriptor usable as a parameter default. Descriptors
// are resolved per dispatch against the inbound message; resolver functions
// may themselves declare injectable parameters, and the resulting graph is
// checked for cycles at registration time.
type Dep struct {
	label   string
	fn      any
	params  []Param
	builtin func(ctx context.Context, d *Delivery) (reflect.Value, error)
}

func (d *Dep) String() string { return d.label }

// Depends declares a resolver function whose result is injected into the
// parameter. The resolver has the same shape as a callback and may have its
// own dependency parameters; resolution is recursive.
func Depends(fn any, params ...Param) *Dep {
	return &Dep{
		label:  fmt.Sprintf("depends(%T)", fn),
		fn:     fn,
		params: params,
	}
}

// Token injects the subject token at the given zero-based index.
func Token(index int) *Dep {
	return &Dep{
		label: fmt.Sprintf("token(%d)", index),
		builtin: func(_ context.Context, d *Delivery) (reflect.Value, error) {
			tokens := d.Tokens()
			if index < 0 || index >= len(tokens) {
				return reflect.Value{}, fmt.Errorf("subject %q has no token %d", d.Msg.Subject, index)
			}
			return reflect.ValueOf(tokens[index]), nil
		},
	}
}

// Header injects the first value of the named message header. A header set
// to the empty string counts as absent and fails extraction, matching how
// subjects and placeholders treat empty tokens.
func Header(key string) *Dep {
	return &Dep{
		label: fmt.Sprintf("header(%s)", key),
		builtin: func(_ context.Context, d *Delivery) (reflect.Value, error) {
			value := d.Msg.Header.Get(key)
			if value == "" {
				return reflect.Value{}, fmt.Errorf("message has no header %q", key)
			}
			return reflect.ValueOf(value), nil
		},
	}
}

// Field injects a field of the JSON payload, addressed by a gjson path such
// as "device.id". The value is injected as its string form.
func Field(path string) *Dep {
	return &Dep{
		label: fmt.Sprintf("field(%s)", path),
		builtin: func(_ context.Context, d *Delivery) (reflect.Value, error) {
			result := gjson.GetBytes(d.Msg.Data, path)
			if !result.Exists() {
				return reflect.Value{}, fmt.Errorf("payload has no field %q", path)
			}
			return reflect.ValueOf(result.String()), nil
		},
	}
}

// Delivery is the per-message input to the argument extractor: the inbound
// message plus the client owning the subscription. Subject tokens are split
// once on first use.
type Delivery struct {
	Msg    *nats.Msg
	Client brokerpkg.Client

	tokens []string
}

// NewDelivery wraps one inbound message for extraction.
func NewDelivery(msg *nats.Msg, client brokerpkg.Client) *Delivery {
	return &Delivery{Msg: msg, Client: client}
}

// Tokens returns the dot-split subject of the inbound message.
func (d *Delivery) Tokens() []string {
	if d.tokens == nil {
		d.tokens = strings.Split(d.Msg.Subject, ".")
	}
	return d.tokens
}

func extractionErr(param string, err error) error {
	return &errspkg.ExtractionError{Param: param, Err: err}
}

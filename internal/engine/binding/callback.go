package binding

import (
	"context"
	"fmt"
	"reflect"

	errspkg "github.com/subwire/subwire/internal/engine/errors"
	subjectpkg "github.com/subwire/subwire/internal/engine/subject"
)

type outMode int

const (
	outNone outMode = iota
	outValue
	outError
	outValueError
)

type extractFunc func(ctx context.Context, d *Delivery) (reflect.Value, error)

// Callback is the compiled form of one registered callback: the function
// value plus one extractor per parameter. Built once at registration time,
// immutable and safe for concurrent dispatches afterwards.
type Callback struct {
	fn         reflect.Value
	rules      []Rule
	extractors []extractFunc
	wantsCtx   bool
	out        outMode
}

// Build inspects fn against the placeholder table and compiles the argument
// extractor. All registration-time errors (unresolvable parameters, cyclic
// dependencies, bad signatures) surface here, before any message flows.
func Build(fn any, params []Param, table subjectpkg.Placeholders) (*Callback, error) {
	return build(fn, params, table, map[*Dep]struct{}{})
}

func build(fn any, params []Param, table subjectpkg.Placeholders, visiting map[*Dep]struct{}) (*Callback, error) {
	rules, err := Inspect(fn, params, table)
	if err != nil {
		return nil, err
	}

	typ := reflect.TypeOf(fn)
	out, err := classifyOutputs(typ)
	if err != nil {
		return nil, err
	}

	cb := &Callback{
		fn:       reflect.ValueOf(fn),
		rules:    rules,
		wantsCtx: typ.NumIn() > 0 && typ.In(0) == ctxType,
		out:      out,
	}

	cb.extractors = make([]extractFunc, len(rules))
	for i, rule := range rules {
		extractor, err := compileRule(rule, table, visiting)
		if err != nil {
			return nil, fmt.Errorf("parameter %d (%q): %w", i, rule.Name, err)
		}
		cb.extractors[i] = extractor
	}
	return cb, nil
}

// Rules exposes the compiled rule list for introspection and tests.
func (c *Callback) Rules() []Rule { return c.rules }

// Extract produces the callback arguments for one inbound message, in
// parameter order, excluding the leading context.
func (c *Callback) Extract(ctx context.Context, d *Delivery) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(c.extractors))
	for i, extractor := range c.extractors {
		value, err := extractor(ctx, d)
		if err != nil {
			return nil, extractionErr(ruleLabel(c.rules[i]), err)
		}
		args[i] = value
	}
	return args, nil
}

// Invoke extracts arguments and calls the callback. Extraction failures
// return an ExtractionError and the callback is never entered; callback
// errors and panics return a CallbackError.
func (c *Callback) Invoke(ctx context.Context, d *Delivery) (any, error) {
	value, err := c.invoke(ctx, d)
	if err != nil {
		return nil, err
	}
	if !value.IsValid() {
		return nil, nil
	}
	return value.Interface(), nil
}

func (c *Callback) invoke(ctx context.Context, d *Delivery) (reflect.Value, error) {
	args, err := c.Extract(ctx, d)
	if err != nil {
		return reflect.Value{}, err
	}
	if c.wantsCtx {
		args = append([]reflect.Value{reflect.ValueOf(ctx)}, args...)
	}

	out, err := c.call(args)
	if err != nil {
		return reflect.Value{}, err
	}

	var value reflect.Value
	var callbackErr error
	switch c.out {
	case outValue:
		value = out[0]
	case outError:
		callbackErr = asError(out[0])
	case outValueError:
		value = out[0]
		callbackErr = asError(out[1])
	}
	if callbackErr != nil {
		return reflect.Value{}, &errspkg.CallbackError{Err: callbackErr}
	}
	return value, nil
}

// call invokes the function, converting panics into CallbackError so one
// misbehaving message can never take down the subscription.
func (c *Callback) call(args []reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &errspkg.CallbackError{Err: fmt.Errorf("%v", r), Panicked: true}
		}
	}()
	return c.fn.Call(args), nil
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

func classifyOutputs(typ reflect.Type) (outMode, error) {
	switch typ.NumOut() {
	case 0:
		return outNone, nil
	case 1:
		if typ.Out(0) == errType {
			return outError, nil
		}
		return outValue, nil
	case 2:
		if typ.Out(0) != errType && typ.Out(1) == errType {
			return outValueError, nil
		}
		return outNone, fmt.Errorf("returns (%s, %s): %w", typ.Out(0), typ.Out(1), errspkg.ErrCallbackReturns)
	default:
		return outNone, errspkg.ErrCallbackReturns
	}
}

func compileRule(rule Rule, table subjectpkg.Placeholders, visiting map[*Dep]struct{}) (extractFunc, error) {
	switch rule.Kind {
	case KindDependency:
		return compileDep(rule.dep, rule.typ, table, visiting)

	case KindClient:
		typ := rule.typ
		return func(_ context.Context, d *Delivery) (reflect.Value, error) {
			if d.Client == nil {
				return reflect.Zero(typ), nil
			}
			return reflect.ValueOf(d.Client), nil
		}, nil

	case KindPayload:
		return func(_ context.Context, d *Delivery) (reflect.Value, error) {
			if d.Msg.Data == nil {
				return reflect.Zero(bytesType), nil
			}
			return reflect.ValueOf(d.Msg.Data), nil
		}, nil

	case KindRawMessage:
		return func(_ context.Context, d *Delivery) (reflect.Value, error) {
			return reflect.ValueOf(d.Msg), nil
		}, nil

	case KindSubject:
		return func(_ context.Context, d *Delivery) (reflect.Value, error) {
			return reflect.ValueOf(Subject(d.Msg.Subject)), nil
		}, nil

	case KindReply:
		return func(_ context.Context, d *Delivery) (reflect.Value, error) {
			return reflect.ValueOf(Reply(d.Msg.Reply)), nil
		}, nil

	case KindPlaceholder:
		index, typ := rule.Index, rule.typ
		return func(_ context.Context, d *Delivery) (reflect.Value, error) {
			tokens := d.Tokens()
			if index >= len(tokens) {
				return reflect.Value{}, fmt.Errorf("subject %q has no token %d", d.Msg.Subject, index)
			}
			return adapt(reflect.ValueOf(tokens[index]), typ)
		}, nil

	default:
		return nil, errspkg.ErrUnresolvableParameter
	}
}

func compileDep(dep *Dep, target reflect.Type, table subjectpkg.Placeholders, visiting map[*Dep]struct{}) (extractFunc, error) {
	if dep.builtin != nil {
		if target != anyType && target.Kind() != reflect.String {
			return nil, fmt.Errorf("%s yields a string, parameter type is %s: %w", dep, target, errspkg.ErrUnresolvableParameter)
		}
		builtin := dep.builtin
		return func(ctx context.Context, d *Delivery) (reflect.Value, error) {
			value, err := builtin(ctx, d)
			if err != nil {
				return reflect.Value{}, err
			}
			return adapt(value, target)
		}, nil
	}

	if dep.fn == nil {
		return nil, errspkg.ErrCallbackRequired
	}
	fnValue := reflect.ValueOf(dep.fn)
	if fnValue.Kind() != reflect.Func {
		return nil, fmt.Errorf("%T: %w", dep.fn, errspkg.ErrNotAFunction)
	}

	// Cycles are a property of the descriptor graph, not of the resolver
	// functions: distinct closures built from one function literal share a
	// code pointer, so the active set is keyed on the descriptor itself.
	// The graph is finite, so recursion can only diverge by revisiting a
	// descriptor already on the active chain.
	if _, active := visiting[dep]; active {
		return nil, fmt.Errorf("%s: %w", dep, errspkg.ErrCyclicDependency)
	}
	visiting[dep] = struct{}{}
	resolver, err := build(dep.fn, dep.params, table, visiting)
	delete(visiting, dep)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dep, err)
	}

	if resolver.out != outValue && resolver.out != outValueError {
		return nil, fmt.Errorf("%s returns no value: %w", dep, errspkg.ErrUnresolvableParameter)
	}
	result := fnValue.Type().Out(0)
	if !assignable(result, target) {
		return nil, fmt.Errorf("%s yields %s, parameter type is %s: %w", dep, result, target, errspkg.ErrUnresolvableParameter)
	}

	return func(ctx context.Context, d *Delivery) (reflect.Value, error) {
		value, err := resolver.invoke(ctx, d)
		if err != nil {
			return reflect.Value{}, err
		}
		return adapt(value, target)
	}, nil
}

func assignable(from, to reflect.Type) bool {
	if to == anyType || from.AssignableTo(to) {
		return true
	}
	return from.Kind() == to.Kind() && from.ConvertibleTo(to)
}

func adapt(value reflect.Value, target reflect.Type) (reflect.Value, error) {
	if target == anyType || value.Type().AssignableTo(target) {
		return value, nil
	}
	if value.Type().Kind() == target.Kind() && value.Type().ConvertibleTo(target) {
		return value.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", value.Type(), target)
}

func ruleLabel(rule Rule) string {
	if rule.Name != "" {
		return rule.Name
	}
	if rule.Kind == KindDependency && rule.dep != nil {
		return rule.dep.String()
	}
	return rule.Kind.String()
}

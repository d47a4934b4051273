package fallback

import (
	"fmt"
	"reflect"
	"sort"
)

// Binding maps failure types to the fallback handlers of one guarded method.
// It is immutable once built and safe for concurrent use.
type Binding struct {
	target    reflect.Type
	signature Signature
	name      string
	handlers  map[reflect.Type]reflect.Value
	hierarchy *Hierarchy
}

// Outcome reports what Dispatch did with a failure.
// Recovered is true when a handler was selected and invoked; Values holds its
// results and FailureType the key it was registered under.
type Outcome struct {
	Recovered   bool
	Values      []any
	FailureType reflect.Type
}

// Target returns the type the binding was built for
func (b *Binding) Target() reflect.Type {
	return b.target
}

// Signature returns the guarded method's signature
func (b *Binding) Signature() Signature {
	return b.signature
}

// Name returns the fallback method name
func (b *Binding) Name() string {
	return b.name
}

// Handles reports whether a handler is registered for exactly t
func (b *Binding) Handles(t reflect.Type) bool {
	_, ok := b.handlers[t]
	return ok
}

// FailureTypes lists the failure types with a handler, sorted by name
func (b *Binding) FailureTypes() []reflect.Type {
	types := make([]reflect.Type, 0, len(b.handlers))
	for t := range b.handlers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		return types[i].String() < types[j].String()
	})
	return types
}

// Select returns the failure type whose handler would run for a failure of
// type t: t itself or its nearest ancestor with a handler
func (b *Binding) Select(t reflect.Type) (reflect.Type, bool) {
	for _, candidate := range b.hierarchy.Ancestors(t) {
		if _, ok := b.handlers[candidate]; ok {
			return candidate, true
		}
	}
	return nil, false
}

// Dispatch invokes the handler for failure with target and args.
//
// When no handler matches, the Outcome is not Recovered, the error is nil and
// the caller is expected to propagate failure itself. An error returned by the
// handler is passed back unchanged alongside its other results.
func (b *Binding) Dispatch(target any, args []any, failure error) (Outcome, error) {
	if failure == nil {
		return Outcome{}, ErrNilFailure
	}

	failureType, ok := b.Select(reflect.TypeOf(failure))
	if !ok {
		return Outcome{}, nil
	}

	fn := b.handlers[failureType]
	in, err := b.arguments(fn.Type(), target, args, failure)
	if err != nil {
		return Outcome{}, err
	}

	out := fn.Call(in)

	outcome := Outcome{
		Recovered:   true,
		Values:      make([]any, len(out)),
		FailureType: failureType,
	}
	for i, v := range out {
		outcome.Values[i] = v.Interface()
	}

	if n := len(out); n > 0 && fn.Type().Out(n-1) == errorType {
		if handlerErr, _ := outcome.Values[n-1].(error); handlerErr != nil {
			return outcome, handlerErr
		}
	}

	return outcome, nil
}

// Recover is Dispatch for callers that only need the results. An unrecoverable
// failure comes back as the error, unchanged.
func (b *Binding) Recover(target any, args []any, failure error) ([]any, error) {
	outcome, err := b.Dispatch(target, args, failure)
	if err != nil {
		return outcome.Values, err
	}
	if !outcome.Recovered {
		return nil, failure
	}
	return outcome.Values, nil
}

func (b *Binding) arguments(ft reflect.Type, target any, args []any, failure error) ([]reflect.Value, error) {
	if len(args) != len(b.signature.In) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d",
			ErrArgumentMismatch, b.signature.Name, len(b.signature.In), len(args))
	}

	receiver := reflect.ValueOf(target)
	if !receiver.IsValid() || !receiver.Type().AssignableTo(ft.In(0)) {
		return nil, fmt.Errorf("%w: target %T is not %v", ErrArgumentMismatch, target, b.target)
	}

	in := make([]reflect.Value, 0, ft.NumIn())
	in = append(in, receiver)

	for i, arg := range args {
		param := ft.In(i + 1)
		if arg == nil {
			in = append(in, reflect.Zero(param))
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(param) {
			return nil, fmt.Errorf("%w: argument %d is %T, want %v", ErrArgumentMismatch, i, arg, param)
		}
		in = append(in, v)
	}

	param := ft.In(ft.NumIn() - 1)
	v, ok := narrow(reflect.ValueOf(failure), param)
	if !ok {
		return nil, fmt.Errorf("%w: failure %T cannot be passed as %v", ErrArgumentMismatch, failure, param)
	}

	return append(in, v), nil
}

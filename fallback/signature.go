package fallback

import (
	"fmt"
	"reflect"
	"strings"
)

// Signature describes a guarded method without its receiver
type Signature struct {
	Name string
	In   []reflect.Type
	Out  []reflect.Type
}

// SignatureOf describes a method obtained from reflect.Type.Method or
// MethodByName. The receiver of a concrete type's method is dropped.
func SignatureOf(m reflect.Method) Signature {
	ft := m.Type
	first := 0
	if m.Func.IsValid() {
		first = 1
	}

	sig := Signature{Name: m.Name}
	for i := first; i < ft.NumIn(); i++ {
		sig.In = append(sig.In, ft.In(i))
	}
	for i := 0; i < ft.NumOut(); i++ {
		sig.Out = append(sig.Out, ft.Out(i))
	}
	return sig
}

// MethodSignature looks up the exported method name on target
func MethodSignature(target reflect.Type, name string) (Signature, error) {
	if target == nil {
		return Signature{}, fmt.Errorf("target type cannot be nil")
	}
	m, ok := target.MethodByName(name)
	if !ok {
		return Signature{}, fmt.Errorf("method %s not found on %v", name, target)
	}
	return SignatureOf(m), nil
}

// FuncSignature describes a plain function or method value as if it were the
// named method
func FuncSignature(name string, fn interface{}) (Signature, error) {
	ft := reflect.TypeOf(fn)
	if ft == nil || ft.Kind() != reflect.Func {
		return Signature{}, fmt.Errorf("expected a function, got %T", fn)
	}

	sig := Signature{Name: name}
	for i := 0; i < ft.NumIn(); i++ {
		sig.In = append(sig.In, ft.In(i))
	}
	for i := 0; i < ft.NumOut(); i++ {
		sig.Out = append(sig.Out, ft.Out(i))
	}
	return sig, nil
}

// Key returns a stable identity for caching bindings of this signature.
// Named types are qualified by import path, so same-named types from
// different packages give different keys.
func (s Signature) Key() string {
	return fmt.Sprintf("%s(%s) (%s)", s.Name, qualifiedNames(s.In), qualifiedNames(s.Out))
}

func qualifiedNames(types []reflect.Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = qualifiedName(t)
	}
	return strings.Join(names, ", ")
}

func qualifiedName(t reflect.Type) string {
	if t.Name() != "" {
		if t.PkgPath() == "" {
			return t.Name()
		}
		return t.PkgPath() + "." + t.Name()
	}

	switch t.Kind() {
	case reflect.Pointer:
		return "*" + qualifiedName(t.Elem())
	case reflect.Slice:
		return "[]" + qualifiedName(t.Elem())
	case reflect.Array:
		return fmt.Sprintf("[%d]%s", t.Len(), qualifiedName(t.Elem()))
	case reflect.Map:
		return "map[" + qualifiedName(t.Key()) + "]" + qualifiedName(t.Elem())
	default:
		return t.String()
	}
}

func (s Signature) String() string {
	return fmt.Sprintf("%s(%s) %s", s.Name, strings.Join(typeNames(s.In), ", "), resultList(s.Out))
}

// accepts reports whether fn has the fallback shape for this signature on
// target and returns the failure type it handles
func (s Signature) accepts(target reflect.Type, ft reflect.Type) (reflect.Type, bool) {
	if ft.Kind() != reflect.Func || ft.IsVariadic() {
		return nil, false
	}
	if ft.NumIn() != len(s.In)+2 || ft.NumOut() != len(s.Out) {
		return nil, false
	}
	if !target.AssignableTo(ft.In(0)) {
		return nil, false
	}
	for i, in := range s.In {
		if ft.In(i+1) != in {
			return nil, false
		}
	}

	failure := ft.In(ft.NumIn() - 1)
	if !IsFailureType(failure) {
		return nil, false
	}

	for i, out := range s.Out {
		if !ft.Out(i).AssignableTo(out) {
			return nil, false
		}
	}
	return failure, true
}

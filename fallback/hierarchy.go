package fallback

import (
	"fmt"
	"reflect"
	"sync"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ErrorType is the root of every failure hierarchy
func ErrorType() reflect.Type {
	return errorType
}

// IsFailureType reports whether values of t can be raised as failures
func IsFailureType(t reflect.Type) bool {
	return t != nil && t.Implements(errorType)
}

// Hierarchy orders failure types from narrow to broad.
//
// A failure struct inherits from the first exported embedded field that is
// itself a failure type: given
//
//	type IllegalArgumentError struct{ RuntimeError }
//
// the supertype of *IllegalArgumentError is *RuntimeError. Types with no such
// field, types embedding only unexported failure types, and interfaces sit
// directly under error unless a supertype is declared for them.
type Hierarchy struct {
	mu       sync.RWMutex
	declared map[reflect.Type]reflect.Type
}

// NewHierarchy creates a hierarchy with no declared supertypes
func NewHierarchy() *Hierarchy {
	return &Hierarchy{
		declared: make(map[reflect.Type]reflect.Type),
	}
}

// Declare makes the interface parent the supertype of child, overriding
// the supertype derived from embedding. child must implement parent.
func (h *Hierarchy) Declare(child, parent reflect.Type) error {
	if !IsFailureType(child) || child == errorType {
		return fmt.Errorf("%w: %v", ErrInvalidFailureType, child)
	}
	if parent == nil || parent.Kind() != reflect.Interface || !IsFailureType(parent) {
		return fmt.Errorf("%w: supertype %v must be an interface implementing error", ErrInvalidFailureType, parent)
	}
	if !child.Implements(parent) {
		return fmt.Errorf("%w: %v does not implement %v", ErrInvalidFailureType, child, parent)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for t := parent; t != nil; t = h.supertypeLocked(t) {
		if t == child {
			return fmt.Errorf("%w: %v -> %v", ErrHierarchyCycle, child, parent)
		}
	}

	h.declared[child] = parent
	return nil
}

// Supertype returns the immediate supertype of t; error has none
func (h *Hierarchy) Supertype(t reflect.Type) (reflect.Type, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	parent := h.supertypeLocked(t)
	return parent, parent != nil
}

// Ancestors returns t followed by each supertype, ending with error
func (h *Hierarchy) Ancestors(t reflect.Type) []reflect.Type {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var chain []reflect.Type
	seen := make(map[reflect.Type]bool)
	for current := t; current != nil; current = h.supertypeLocked(current) {
		if seen[current] {
			// embedding through pointers can loop; close the chain at the root
			chain = append(chain, errorType)
			break
		}
		seen[current] = true
		chain = append(chain, current)
	}
	return chain
}

func (h *Hierarchy) supertypeLocked(t reflect.Type) reflect.Type {
	if t == nil || t == errorType {
		return nil
	}
	if parent, ok := h.declared[t]; ok {
		return parent
	}
	if _, parent, ok := embeddedSupertype(t); ok {
		return parent
	}
	return errorType
}

// embeddedSupertype finds the first embedded field of t's struct that is a
// failure type. The field index is returned so values can be narrowed to it.
func embeddedSupertype(t reflect.Type) (int, reflect.Type, bool) {
	isPtr := t.Kind() == reflect.Pointer
	st := t
	if isPtr {
		st = t.Elem()
	}
	if st.Kind() != reflect.Struct {
		return 0, nil, false
	}

	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		// unexported embedded values cannot be handed to a handler
		if !field.Anonymous || !field.IsExported() {
			continue
		}
		ft := field.Type
		switch ft.Kind() {
		case reflect.Pointer:
			if ft.Elem().Kind() == reflect.Struct && ft.Implements(errorType) {
				return i, ft, true
			}
		case reflect.Struct:
			if isPtr && reflect.PointerTo(ft).Implements(errorType) {
				return i, reflect.PointerTo(ft), true
			}
			if !isPtr && ft.Implements(errorType) {
				return i, ft, true
			}
		}
	}
	return 0, nil, false
}

// narrow converts failure into a value assignable to the target type, following
// embedded supertype fields when failure's own type is not assignable
func narrow(failure reflect.Value, target reflect.Type) (reflect.Value, bool) {
	v := failure
	for depth := 0; depth < maxNarrowDepth; depth++ {
		if v.Type().AssignableTo(target) {
			return v, true
		}

		index, _, ok := embeddedSupertype(v.Type())
		if !ok {
			return reflect.Value{}, false
		}

		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Zero(target), true
			}
			field := v.Elem().Field(index)
			if !field.CanInterface() {
				return reflect.Value{}, false
			}
			if field.Kind() == reflect.Pointer {
				v = field
			} else {
				v = field.Addr()
			}
			continue
		}
		v = v.Field(index)
		if !v.CanInterface() {
			// unexported embedded type
			return reflect.Value{}, false
		}
	}
	return reflect.Value{}, false
}

const maxNarrowDepth = 64

var defaultHierarchy = NewHierarchy()

// DefaultHierarchy returns the hierarchy used by the default registry
func DefaultHierarchy() *Hierarchy {
	return defaultHierarchy
}

// Declare declares a supertype in the default hierarchy
func Declare(child, parent reflect.Type) error {
	return defaultHierarchy.Declare(child, parent)
}

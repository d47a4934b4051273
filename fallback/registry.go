package fallback

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// Registry holds fallback handlers that reflection cannot discover: unexported
// methods and additional handlers sharing a name. Handlers are method
// expressions such as (*Service).recoverTimeout, taking the receiver first.
type Registry struct {
	handlers  map[handlerKey][]reflect.Value
	hierarchy *Hierarchy
	logger    *slog.Logger
	mu        sync.RWMutex
}

type handlerKey struct {
	target reflect.Type
	name   string
}

// RegistryOption configures the Registry
type RegistryOption func(*Registry)

// WithHierarchy sets the failure hierarchy used by bindings
func WithHierarchy(hierarchy *Hierarchy) RegistryOption {
	return func(r *Registry) {
		if hierarchy != nil {
			r.hierarchy = hierarchy
		}
	}
}

// WithRegistryLogger sets the logger
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry
func NewRegistry(options ...RegistryOption) *Registry {
	r := &Registry{
		handlers:  make(map[handlerKey][]reflect.Value),
		hierarchy: NewHierarchy(),
		logger:    slog.Default(),
	}

	for _, opt := range options {
		opt(r)
	}

	return r
}

// Hierarchy returns the failure hierarchy bindings of this registry walk
func (r *Registry) Hierarchy() *Hierarchy {
	return r.hierarchy
}

// Register adds fn as a fallback candidate called name on target.
// fn must take a value of target first and a failure type last.
func (r *Registry) Register(target reflect.Type, name string, fn interface{}) error {
	if target == nil {
		return fmt.Errorf("%w: target type cannot be nil", ErrInvalidHandler)
	}
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidHandler)
	}

	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return fmt.Errorf("%w: expected a function, got %T", ErrInvalidHandler, fn)
	}

	ft := v.Type()
	if ft.NumIn() < 2 || !target.AssignableTo(ft.In(0)) {
		return fmt.Errorf("%w: %v must take %v as its first parameter", ErrInvalidHandler, ft, target)
	}
	if !IsFailureType(ft.In(ft.NumIn() - 1)) {
		return fmt.Errorf("%w: last parameter of %v must be a failure type", ErrInvalidHandler, ft)
	}

	key := handlerKey{target: target, name: name}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[key] = append(r.handlers[key], v)

	r.logger.Debug("registered fallback handler",
		"target", target.String(),
		"name", name,
		"failureType", ft.In(ft.NumIn()-1).String(),
	)

	return nil
}

// RegisterFor is Register with the target type given as a type parameter
func RegisterFor[T any](r *Registry, name string, fn interface{}) error {
	return r.Register(reflect.TypeFor[T](), name, fn)
}

// Bind builds the binding for fallback name of the method described by sig on
// target. Candidates are the exported method called name, if any, plus every
// handler registered under name for target.
func (r *Registry) Bind(target reflect.Type, sig Signature, name string) (*Binding, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: target type cannot be nil", ErrInvalidHandler)
	}

	handlers := make(map[reflect.Type]reflect.Value)
	for _, candidate := range r.candidates(target, name) {
		failure, ok := sig.accepts(target, candidate.Type())
		if !ok {
			continue
		}
		if _, exists := handlers[failure]; exists {
			return nil, &AmbiguousHandlerError{Target: target, Name: name, FailureType: failure}
		}
		handlers[failure] = candidate
	}

	if len(handlers) == 0 {
		return nil, &HandlerNotFoundError{Target: target, Name: name, Signature: sig}
	}

	return &Binding{
		target:    target,
		signature: sig,
		name:      name,
		handlers:  handlers,
		hierarchy: r.hierarchy,
	}, nil
}

func (r *Registry) candidates(target reflect.Type, name string) []reflect.Value {
	var candidates []reflect.Value
	if m, ok := target.MethodByName(name); ok && m.Func.IsValid() {
		candidates = append(candidates, m.Func)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return append(candidates, r.handlers[handlerKey{target: target, name: name}]...)
}

var defaultRegistry = NewRegistry(WithHierarchy(defaultHierarchy))

// DefaultRegistry returns the process-wide registry
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a handler to the default registry
func Register(target reflect.Type, name string, fn interface{}) error {
	return defaultRegistry.Register(target, name, fn)
}

// Bind binds against the default registry
func Bind(target reflect.Type, sig Signature, name string) (*Binding, error) {
	return defaultRegistry.Bind(target, sig, name)
}

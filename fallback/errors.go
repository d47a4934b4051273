package fallback

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// Bind errors
	ErrHandlerNotFound  = errors.New("fallback: handler not found")
	ErrAmbiguousHandler = errors.New("fallback: ambiguous handler")
	ErrInvalidHandler   = errors.New("fallback: invalid handler")

	// Dispatch errors
	ErrNilFailure       = errors.New("fallback: failure cannot be nil")
	ErrArgumentMismatch = errors.New("fallback: arguments do not match signature")

	// Hierarchy errors
	ErrInvalidFailureType = errors.New("fallback: invalid failure type")
	ErrHierarchyCycle     = errors.New("fallback: failure hierarchy cycle")
)

// HandlerNotFoundError is returned when no method on the target has the
// required fallback shape
type HandlerNotFoundError struct {
	Target    reflect.Type
	Name      string
	Signature Signature
}

func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("no fallback method matches %s", e.Expected())
}

// Expected renders the fallback signature that was looked for, failure
// parameter included
func (e *HandlerNotFoundError) Expected() string {
	params := append(typeNames(e.Signature.In), failureParam)
	return fmt.Sprintf("%s %s.%s(%s)",
		resultList(e.Signature.Out), e.Target, e.Name, strings.Join(params, ", "))
}

func (e *HandlerNotFoundError) Unwrap() error {
	return ErrHandlerNotFound
}

// AmbiguousHandlerError is returned when two qualifying methods accept the
// same failure type
type AmbiguousHandlerError struct {
	Target      reflect.Type
	Name        string
	FailureType reflect.Type
}

func (e *AmbiguousHandlerError) Error() string {
	return fmt.Sprintf("fallback: %s.%s has more than one handler for %s", e.Target, e.Name, e.FailureType)
}

func (e *AmbiguousHandlerError) Unwrap() error {
	return ErrAmbiguousHandler
}

// failureParam stands for any parameter type implementing error
const failureParam = "<failure implementing error>"

func typeNames(types []reflect.Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}

func resultList(types []reflect.Type) string {
	switch len(types) {
	case 0:
		return "()"
	case 1:
		return types[0].String()
	default:
		return "(" + strings.Join(typeNames(types), ", ") + ")"
	}
}

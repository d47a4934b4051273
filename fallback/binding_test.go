package fallback

import (
	"errors"
	htmltemplate "html/template"
	"reflect"
	"testing"
	texttemplate "text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serviceType = reflect.TypeOf(&testService{})

func testMethodSignature(t *testing.T) Signature {
	t.Helper()
	sig, err := MethodSignature(serviceType, "TestMethod")
	require.NoError(t, err)
	return sig
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	registry := NewRegistry()
	require.NoError(t, registry.Register(serviceType, "FallbackMethod", (*testService).recoverIllegalArgument))
	return registry
}

func TestBind(t *testing.T) {
	t.Run("collects exported and registered handlers", func(t *testing.T) {
		binding, err := newTestRegistry(t).Bind(serviceType, testMethodSignature(t), "FallbackMethod")
		require.NoError(t, err)

		assert.Equal(t, serviceType, binding.Target())
		assert.Equal(t, "FallbackMethod", binding.Name())
		assert.Equal(t, "TestMethod", binding.Signature().Name)
		assert.Equal(t, []reflect.Type{
			reflect.TypeOf(&IllegalArgumentError{}),
			reflect.TypeOf(&RuntimeError{}),
		}, binding.FailureTypes())
	})

	t.Run("return type mismatch is not a handler", func(t *testing.T) {
		_, err := NewRegistry().Bind(serviceType, testMethodSignature(t), "ReturnMismatchRecovery")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrHandlerNotFound)
		assert.EqualError(t, err,
			"no fallback method matches (string, error) *fallback.testService.ReturnMismatchRecovery(string, <failure implementing error>)")

		var notFound *HandlerNotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, "ReturnMismatchRecovery", notFound.Name)
		assert.Equal(t, serviceType, notFound.Target)
	})

	t.Run("wrong arity is not a handler", func(t *testing.T) {
		_, err := NewRegistry().Bind(serviceType, testMethodSignature(t), "WrongArity")
		assert.ErrorIs(t, err, ErrHandlerNotFound)
	})

	t.Run("unknown name is not found", func(t *testing.T) {
		_, err := NewRegistry().Bind(serviceType, testMethodSignature(t), "NoSuchMethod")
		assert.ErrorIs(t, err, ErrHandlerNotFound)
	})

	t.Run("two handlers for one failure type are ambiguous", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(serviceType, "FallbackMethod", (*testService).recoverRuntimeAgain))

		_, err := registry.Bind(serviceType, testMethodSignature(t), "FallbackMethod")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAmbiguousHandler)

		var ambiguous *AmbiguousHandlerError
		require.True(t, errors.As(err, &ambiguous))
		assert.Equal(t, reflect.TypeOf(&RuntimeError{}), ambiguous.FailureType)
	})

	t.Run("private handler only through the registry", func(t *testing.T) {
		_, err := NewRegistry().Bind(serviceType, testMethodSignature(t), "recoverIllegalArgument")
		assert.ErrorIs(t, err, ErrHandlerNotFound)

		registry := NewRegistry()
		require.NoError(t, registry.Register(serviceType, "Recover", (*testService).recoverIllegalArgument))
		binding, err := registry.Bind(serviceType, testMethodSignature(t), "Recover")
		require.NoError(t, err)
		assert.True(t, binding.Handles(reflect.TypeOf(&IllegalArgumentError{})))
	})

	t.Run("nil target type", func(t *testing.T) {
		_, err := NewRegistry().Bind(nil, Signature{}, "FallbackMethod")
		assert.ErrorIs(t, err, ErrInvalidHandler)
	})
}

func TestDispatch(t *testing.T) {
	service := &testService{prefix: "recovered "}

	bind := func(t *testing.T, registry *Registry, name string) *Binding {
		t.Helper()
		binding, err := registry.Bind(serviceType, testMethodSignature(t), name)
		require.NoError(t, err)
		return binding
	}

	t.Run("exact failure type", func(t *testing.T) {
		binding := bind(t, newTestRegistry(t), "FallbackMethod")

		outcome, err := binding.Dispatch(service, []any{"in"}, &RuntimeError{Msg: "boom"})
		require.NoError(t, err)
		assert.True(t, outcome.Recovered)
		assert.Equal(t, reflect.TypeOf(&RuntimeError{}), outcome.FailureType)
		assert.Equal(t, []any{"recovered runtime: in", nil}, outcome.Values)
	})

	t.Run("nearest ancestor wins", func(t *testing.T) {
		binding := bind(t, newTestRegistry(t), "FallbackMethod")
		failure := &NumberFormatError{IllegalArgumentError{RuntimeError{Msg: "not a number"}}}

		outcome, err := binding.Dispatch(service, []any{"42x"}, failure)
		require.NoError(t, err)
		assert.True(t, outcome.Recovered)
		assert.Equal(t, reflect.TypeOf(&IllegalArgumentError{}), outcome.FailureType)
		assert.Equal(t, "recovered illegal argument: 42x (not a number)", outcome.Values[0])
	})

	t.Run("siblings do not match", func(t *testing.T) {
		binding := bind(t, newTestRegistry(t), "FallbackMethod")

		outcome, err := binding.Dispatch(service, []any{"in"}, &IllegalStateError{RuntimeError{Msg: "state"}})
		require.NoError(t, err)
		assert.Equal(t, reflect.TypeOf(&RuntimeError{}), outcome.FailureType)
		assert.Equal(t, "recovered runtime: in", outcome.Values[0])
	})

	t.Run("unrecoverable failure is returned as is", func(t *testing.T) {
		binding := bind(t, newTestRegistry(t), "FallbackMethod")
		failure := errors.New("plain")

		outcome, err := binding.Dispatch(service, []any{"in"}, failure)
		require.NoError(t, err)
		assert.False(t, outcome.Recovered)
		assert.Nil(t, outcome.Values)

		values, err := binding.Recover(service, []any{"in"}, failure)
		assert.Nil(t, values)
		assert.Same(t, failure, err)
	})

	t.Run("error handler catches everything", func(t *testing.T) {
		binding := bind(t, NewRegistry(), "CatchAll")

		values, err := binding.Recover(service, []any{"in"}, errors.New("plain"))
		require.NoError(t, err)
		assert.Equal(t, "caught: plain", values[0])
		assert.Equal(t, []reflect.Type{ErrorType()}, binding.FailureTypes())
	})

	t.Run("handler errors propagate", func(t *testing.T) {
		binding := bind(t, NewRegistry(), "Rethrow")
		failure := &RuntimeError{Msg: "boom"}

		outcome, err := binding.Dispatch(service, []any{"in"}, failure)
		require.Error(t, err)
		assert.EqualError(t, err, "fallback failed")
		assert.NotSame(t, failure, err)
		assert.True(t, outcome.Recovered)
		assert.Equal(t, "partial", outcome.Values[0])

		_, err = binding.Recover(service, []any{"in"}, failure)
		assert.EqualError(t, err, "fallback failed")
	})

	t.Run("value failure types", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(serviceType, "Recover", (*testService).recoverValue))
		binding := bind(t, registry, "Recover")

		values, err := binding.Recover(service, []any{"in"}, WrappedValueError{ValueError{Code: 7}})
		require.NoError(t, err)
		assert.Equal(t, "value 7", values[0])
	})

	t.Run("unexported embedded failures do not inherit handlers", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(serviceType, "Recover", (*testService).recoverBase))
		binding := bind(t, registry, "Recover")

		values, err := binding.Recover(service, []any{"in"}, &baseFailure{Msg: "direct"})
		require.NoError(t, err)
		assert.Equal(t, "base: direct", values[0])

		failure := &childFailure{baseFailure{Msg: "embedded"}}
		_, ok := binding.Select(reflect.TypeOf(failure))
		assert.False(t, ok)

		outcome, err := binding.Dispatch(service, []any{"in"}, failure)
		require.NoError(t, err)
		assert.False(t, outcome.Recovered)

		_, err = binding.Recover(service, []any{"in"}, failure)
		assert.Same(t, failure, err)
	})

	t.Run("declared interface supertype", func(t *testing.T) {
		hierarchy := NewHierarchy()
		registry := NewRegistry(WithHierarchy(hierarchy))
		require.NoError(t, registry.Register(serviceType, "Recover", (*testService).recoverTemporary))
		binding := bind(t, registry, "Recover")

		_, err := binding.Recover(service, []any{"in"}, timeoutError{})
		assert.Equal(t, timeoutError{}, err)

		require.NoError(t, hierarchy.Declare(reflect.TypeOf(timeoutError{}), reflect.TypeFor[Temporary]()))
		values, err := binding.Recover(service, []any{"in"}, timeoutError{})
		require.NoError(t, err)
		assert.Equal(t, "recovered temporary: timeout", values[0])
	})

	t.Run("nil argument becomes the zero value", func(t *testing.T) {
		binding := bind(t, newTestRegistry(t), "FallbackMethod")

		values, err := binding.Recover(service, []any{nil}, &RuntimeError{})
		require.NoError(t, err)
		assert.Equal(t, "recovered runtime: ", values[0])
	})

	t.Run("nil failure", func(t *testing.T) {
		binding := bind(t, newTestRegistry(t), "FallbackMethod")

		_, err := binding.Dispatch(service, []any{"in"}, nil)
		assert.ErrorIs(t, err, ErrNilFailure)
	})

	t.Run("mismatched arguments", func(t *testing.T) {
		binding := bind(t, newTestRegistry(t), "FallbackMethod")

		_, err := binding.Dispatch(service, []any{42}, &RuntimeError{})
		assert.ErrorIs(t, err, ErrArgumentMismatch)

		_, err = binding.Dispatch(service, nil, &RuntimeError{})
		assert.ErrorIs(t, err, ErrArgumentMismatch)

		_, err = binding.Dispatch("not a service", []any{"in"}, &RuntimeError{})
		assert.ErrorIs(t, err, ErrArgumentMismatch)
	})
}

func TestRegister(t *testing.T) {
	registry := NewRegistry()

	t.Run("rejects non functions", func(t *testing.T) {
		err := registry.Register(serviceType, "Recover", "nope")
		assert.ErrorIs(t, err, ErrInvalidHandler)
	})

	t.Run("rejects a foreign receiver", func(t *testing.T) {
		err := registry.Register(serviceType, "Recover", func(s string, err error) {})
		assert.ErrorIs(t, err, ErrInvalidHandler)
	})

	t.Run("rejects a missing failure parameter", func(t *testing.T) {
		err := registry.Register(serviceType, "Recover", func(s *testService, input string) {})
		assert.ErrorIs(t, err, ErrInvalidHandler)
	})

	t.Run("rejects an empty name", func(t *testing.T) {
		err := registry.Register(serviceType, "", (*testService).recoverValue)
		assert.ErrorIs(t, err, ErrInvalidHandler)
	})

	t.Run("accepts a type parameter", func(t *testing.T) {
		require.NoError(t, RegisterFor[*testService](registry, "Generic", (*testService).recoverValue))

		binding, err := registry.Bind(serviceType, testMethodSignature(t), "Generic")
		require.NoError(t, err)
		assert.True(t, binding.Handles(reflect.TypeOf(ValueError{})))
	})
}

func TestSignature(t *testing.T) {
	sig := testMethodSignature(t)
	assert.Equal(t, "TestMethod(string) (string, error)", sig.String())

	fromFunc, err := FuncSignature("TestMethod", (&testService{}).TestMethod)
	require.NoError(t, err)
	assert.Equal(t, sig.Key(), fromFunc.Key())

	_, err = MethodSignature(serviceType, "Missing")
	assert.Error(t, err)

	_, err = FuncSignature("x", 3)
	assert.Error(t, err)

	t.Run("keys tell same-named types apart", func(t *testing.T) {
		text, err := FuncSignature("Render", func(*texttemplate.Template) error { return nil })
		require.NoError(t, err)
		html, err := FuncSignature("Render", func(*htmltemplate.Template) error { return nil })
		require.NoError(t, err)

		assert.Equal(t, text.String(), html.String())
		assert.NotEqual(t, text.Key(), html.Key())
		assert.Equal(t, "Render(*text/template.Template) (error)", text.Key())
	})
}

package guard

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"github.com/glimte/mmate-resilience/fallback"
)

// Handler runs a guarded invocation. Values are the method's results without
// its trailing error.
type Handler interface {
	Handle(ctx context.Context, inv *Invocation) ([]any, error)
}

// HandlerFunc is a function adapter for Handler
type HandlerFunc func(ctx context.Context, inv *Invocation) ([]any, error)

// Handle implements Handler
func (f HandlerFunc) Handle(ctx context.Context, inv *Invocation) ([]any, error) {
	return f(ctx, inv)
}

// Interceptor wraps the handling of an invocation
type Interceptor interface {
	// Intercept processes an invocation and calls the next handler in the chain
	Intercept(ctx context.Context, inv *Invocation, next Handler) ([]any, error)

	// Name returns the interceptor name for logging and debugging
	Name() string
}

// InterceptorFunc is a function adapter for Interceptor
type InterceptorFunc struct {
	name string
	fn   func(ctx context.Context, inv *Invocation, next Handler) ([]any, error)
}

// NewInterceptorFunc creates a new function-based interceptor
func NewInterceptorFunc(name string, fn func(ctx context.Context, inv *Invocation, next Handler) ([]any, error)) *InterceptorFunc {
	return &InterceptorFunc{name: name, fn: fn}
}

// Intercept implements Interceptor
func (i *InterceptorFunc) Intercept(ctx context.Context, inv *Invocation, next Handler) ([]any, error) {
	return i.fn(ctx, inv, next)
}

// Name implements Interceptor
func (i *InterceptorFunc) Name() string {
	return i.name
}

// Chain runs interceptors in the order they were added
type Chain struct {
	interceptors []Interceptor
}

// NewChain creates a chain of interceptors
func NewChain(interceptors ...Interceptor) *Chain {
	c := &Chain{}
	for _, interceptor := range interceptors {
		c.Add(interceptor)
	}
	return c
}

// Add adds an interceptor to the chain
func (c *Chain) Add(interceptor Interceptor) *Chain {
	if interceptor != nil {
		c.interceptors = append(c.interceptors, interceptor)
	}
	return c
}

// Names lists the interceptors in execution order
func (c *Chain) Names() []string {
	names := make([]string, len(c.interceptors))
	for i, interceptor := range c.interceptors {
		names[i] = interceptor.Name()
	}
	return names
}

// Execute executes the chain around final
func (c *Chain) Execute(ctx context.Context, inv *Invocation, final Handler) ([]any, error) {
	handler := final
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		interceptor := c.interceptors[i]
		next := handler
		handler = HandlerFunc(func(ctx context.Context, inv *Invocation) ([]any, error) {
			return interceptor.Intercept(ctx, inv, next)
		})
	}

	return handler.Handle(ctx, inv)
}

// LoggingInterceptor logs guarded calls
type LoggingInterceptor struct {
	logger *slog.Logger
}

// NewLoggingInterceptor creates a new logging interceptor
func NewLoggingInterceptor(logger *slog.Logger) *LoggingInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return &LoggingInterceptor{logger: logger}
}

// Intercept implements Interceptor
func (i *LoggingInterceptor) Intercept(ctx context.Context, inv *Invocation, next Handler) ([]any, error) {
	start := time.Now()

	i.logger.Debug("guarded call started",
		"invocationId", inv.ID,
		"policy", inv.Name,
		"method", inv.Method.Name,
	)

	values, err := next.Handle(ctx, inv)
	duration := time.Since(start)

	if err != nil {
		i.logger.Error("guarded call failed",
			"invocationId", inv.ID,
			"policy", inv.Name,
			"method", inv.Method.Name,
			"duration", duration,
			"error", err,
		)
	} else {
		i.logger.Debug("guarded call completed",
			"invocationId", inv.ID,
			"policy", inv.Name,
			"method", inv.Method.Name,
			"duration", duration,
		)
	}

	return values, err
}

// Name implements Interceptor
func (i *LoggingInterceptor) Name() string {
	return "LoggingInterceptor"
}

// FallbackInterceptor replaces a failed call with the result of the
// invocation's fallback handler. Invocations without a fallback name pass
// through untouched.
type FallbackInterceptor struct {
	cache  *BindingCache
	logger *slog.Logger
}

// NewFallbackInterceptor creates a fallback interceptor binding through cache
func NewFallbackInterceptor(cache *BindingCache, logger *slog.Logger) *FallbackInterceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return &FallbackInterceptor{cache: cache, logger: logger}
}

// Intercept implements Interceptor
func (i *FallbackInterceptor) Intercept(ctx context.Context, inv *Invocation, next Handler) ([]any, error) {
	if inv.Fallback == "" {
		return next.Handle(ctx, inv)
	}

	// bind before the call so a missing handler fails every call
	binding, err := i.cache.Get(reflect.TypeOf(inv.Target), inv.Method, inv.Fallback)
	if err != nil {
		return nil, err
	}

	values, failure := next.Handle(ctx, inv)
	if failure == nil {
		return values, nil
	}

	outcome, err := binding.Dispatch(inv.Target, inv.Args, failure)
	if err != nil {
		i.logger.Error("fallback failed",
			"invocationId", inv.ID,
			"fallback", inv.Fallback,
			"failure", failure,
			"error", err,
		)
		return trimError(inv, outcome.Values), err
	}

	if !outcome.Recovered {
		i.logger.Debug("failure not recoverable",
			"invocationId", inv.ID,
			"fallback", inv.Fallback,
			"failureType", reflect.TypeOf(failure).String(),
		)
		return values, failure
	}

	i.logger.Info("recovered with fallback",
		"invocationId", inv.ID,
		"policy", inv.Name,
		"method", inv.Method.Name,
		"fallback", inv.Fallback,
		"failureType", outcome.FailureType.String(),
	)

	return trimError(inv, outcome.Values), nil
}

// Name implements Interceptor
func (i *FallbackInterceptor) Name() string {
	return "FallbackInterceptor"
}

// trimError drops the trailing error slot of a handler's results
func trimError(inv *Invocation, values []any) []any {
	out := inv.Method.Out
	if n := len(out); n > 0 && len(values) == n && out[n-1] == fallback.ErrorType() {
		return values[:n-1]
	}
	return values
}

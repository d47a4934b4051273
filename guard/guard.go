package guard

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/glimte/mmate-resilience/config"
	"github.com/glimte/mmate-resilience/fallback"
)

// PolicyResolver resolves named policies; *config.Resolver is the usual one
type PolicyResolver interface {
	Resolve(name string) (*config.Policy, error)
}

// Guard runs calls under a named policy with fallback recovery
type Guard struct {
	resolver     PolicyResolver
	binder       Binder
	cacheSize    int
	interceptors []Interceptor
	chain        *Chain
	cache        *BindingCache
	logger       *slog.Logger

	mu       sync.RWMutex
	policies map[string]*config.Policy
}

// Option configures the Guard
type Option func(*Guard)

// WithLogger sets the logger used by the guard and its interceptors
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithBinder sets where fallback bindings come from, the default registry
// otherwise
func WithBinder(binder Binder) Option {
	return func(g *Guard) {
		g.binder = binder
	}
}

// WithBindingCacheSize bounds the number of cached bindings
func WithBindingCacheSize(size int) Option {
	return func(g *Guard) {
		g.cacheSize = size
	}
}

// WithInterceptors adds interceptors that run inside logging and outside
// fallback recovery
func WithInterceptors(interceptors ...Interceptor) Option {
	return func(g *Guard) {
		g.interceptors = append(g.interceptors, interceptors...)
	}
}

// NewGuard creates a guard resolving policies through resolver
func NewGuard(resolver PolicyResolver, options ...Option) (*Guard, error) {
	if resolver == nil {
		return nil, fmt.Errorf("policy resolver cannot be nil")
	}

	g := &Guard{
		resolver:  resolver,
		cacheSize: DefaultBindingCacheSize,
		logger:    slog.Default(),
		policies:  make(map[string]*config.Policy),
	}

	for _, opt := range options {
		opt(g)
	}

	cache, err := NewBindingCache(g.binder, WithCacheSize(g.cacheSize), WithCacheLogger(g.logger))
	if err != nil {
		return nil, err
	}
	g.cache = cache

	g.chain = NewChain(NewLoggingInterceptor(g.logger))
	for _, interceptor := range g.interceptors {
		g.chain.Add(interceptor)
	}
	g.chain.Add(NewFallbackInterceptor(cache, g.logger))

	return g, nil
}

// Policy returns the resolved policy for name, resolving it on first use.
// Resolution errors are returned every time and never cached.
func (g *Guard) Policy(name string) (*config.Policy, error) {
	g.mu.RLock()
	policy, ok := g.policies[name]
	g.mu.RUnlock()
	if ok {
		return policy, nil
	}

	policy, err := g.resolver.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve policy %s: %w", name, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.policies[name]; ok {
		return existing, nil
	}
	g.policies[name] = policy

	return policy, nil
}

// Chain returns the interceptor chain calls run through
func (g *Guard) Chain() *Chain {
	return g.chain
}

// Bindings returns the fallback binding cache
func (g *Guard) Bindings() *BindingCache {
	return g.cache
}

// CallOption configures a single call
type CallOption func(*Invocation)

// WithFallback names the fallback handlers that recover the call
func WithFallback(name string) CallOption {
	return func(inv *Invocation) {
		inv.Fallback = name
	}
}

// Call runs fn as the method of target under the policy name. fn returns the
// method's results without the trailing error; on failure the fallback
// handlers receive args.
func (g *Guard) Call(ctx context.Context, name string, target any, method string, args []any,
	fn func(ctx context.Context) ([]any, error), options ...CallOption) ([]any, error) {
	policy, err := g.Policy(name)
	if err != nil {
		return nil, err
	}

	sig, err := fallback.MethodSignature(reflect.TypeOf(target), method)
	if err != nil {
		return nil, fmt.Errorf("failed to guard %s: %w", method, err)
	}

	inv := NewInvocation(name, target, sig, args)
	inv.Policy = policy
	for _, opt := range options {
		opt(inv)
	}

	return g.chain.Execute(WithInvocation(ctx, inv), inv, HandlerFunc(func(ctx context.Context, _ *Invocation) ([]any, error) {
		return fn(ctx)
	}))
}

// Invoke is Call for methods returning a single value and an error
func Invoke[T any](ctx context.Context, g *Guard, name string, target any, method string, args []any,
	fn func(ctx context.Context) (T, error), options ...CallOption) (T, error) {
	values, err := g.Call(ctx, name, target, method, args, func(ctx context.Context) ([]any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return []any{v}, nil
	}, options...)

	var result T
	if len(values) > 0 {
		if v, ok := values[0].(T); ok {
			result = v
		}
	}
	return result, err
}

package guard

import (
	"fmt"
	"log/slog"
	"reflect"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/glimte/mmate-resilience/fallback"
)

// DefaultBindingCacheSize bounds the number of bindings kept by a BindingCache
const DefaultBindingCacheSize = 1024

// Binder builds fallback bindings; *fallback.Registry is the usual Binder
type Binder interface {
	Bind(target reflect.Type, sig fallback.Signature, name string) (*fallback.Binding, error)
}

// BinderFunc is a function adapter for Binder
type BinderFunc func(target reflect.Type, sig fallback.Signature, name string) (*fallback.Binding, error)

// Bind implements Binder
func (f BinderFunc) Bind(target reflect.Type, sig fallback.Signature, name string) (*fallback.Binding, error) {
	return f(target, sig, name)
}

type bindingKey struct {
	target   reflect.Type
	method   string
	fallback string
}

func (k bindingKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", pkgPath(k.target), k.target, k.method, k.fallback)
}

// pkgPath qualifies type names that would otherwise collide across packages
func pkgPath(t reflect.Type) string {
	for t != nil && t.Name() == "" {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
			t = t.Elem()
		default:
			return ""
		}
	}
	if t == nil {
		return ""
	}
	return t.PkgPath()
}

// BindingCache memoizes bindings per target type, method and fallback name.
// Concurrent misses on one key build the binding once. Bind errors are not
// cached.
type BindingCache struct {
	binder Binder
	cache  *lru.Cache[bindingKey, *fallback.Binding]
	group  singleflight.Group
	size   int
	logger *slog.Logger
}

// CacheOption configures the BindingCache
type CacheOption func(*BindingCache)

// WithCacheSize sets how many bindings are kept
func WithCacheSize(size int) CacheOption {
	return func(c *BindingCache) {
		c.size = size
	}
}

// WithCacheLogger sets the logger
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *BindingCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewBindingCache creates a cache in front of binder. A nil binder binds
// through the default fallback registry.
func NewBindingCache(binder Binder, options ...CacheOption) (*BindingCache, error) {
	if binder == nil {
		binder = fallback.DefaultRegistry()
	}

	c := &BindingCache{
		binder: binder,
		size:   DefaultBindingCacheSize,
		logger: slog.Default(),
	}

	for _, opt := range options {
		opt(c)
	}

	cache, err := lru.New[bindingKey, *fallback.Binding](c.size)
	if err != nil {
		return nil, fmt.Errorf("failed to create binding cache: %w", err)
	}
	c.cache = cache

	return c, nil
}

// Get returns the cached binding or builds it
func (c *BindingCache) Get(target reflect.Type, sig fallback.Signature, name string) (*fallback.Binding, error) {
	key := bindingKey{target: target, method: sig.Key(), fallback: name}
	if binding, ok := c.cache.Get(key); ok {
		return binding, nil
	}

	v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		if binding, ok := c.cache.Get(key); ok {
			return binding, nil
		}

		binding, err := c.binder.Bind(target, sig, name)
		if err != nil {
			return nil, err
		}

		c.cache.Add(key, binding)
		c.logger.Debug("fallback bound",
			"target", fmt.Sprint(target),
			"method", sig.Name,
			"fallback", name,
			"failureTypes", len(binding.FailureTypes()),
		)
		return binding, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*fallback.Binding), nil
}

// Len returns the number of cached bindings
func (c *BindingCache) Len() int {
	return c.cache.Len()
}

// Purge drops every cached binding
func (c *BindingCache) Purge() {
	c.cache.Purge()
}

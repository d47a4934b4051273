// Package guard runs method calls under a named, resolved policy and recovers
// failed calls with fallback handlers.
//
// A Guard resolves each policy name once through a config.Resolver, wraps the
// call in an Invocation and passes it through a chain of interceptors:
//
//	LoggingInterceptor -> custom interceptors -> FallbackInterceptor -> call
//
// Fallback bindings are built on first use and cached per target type, method
// and fallback name.
//
// Example:
//
//	g, err := guard.NewGuard(config.NewResolver(tree))
//	value, err := guard.Invoke(ctx, g, "orders", svc, "Lookup", []any{id},
//		func(ctx context.Context) (string, error) { return svc.Lookup(id) },
//		guard.WithFallback("FromCache"))
package guard

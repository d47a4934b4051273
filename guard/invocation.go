package guard

import (
	"context"

	"github.com/google/uuid"

	"github.com/glimte/mmate-resilience/config"
	"github.com/glimte/mmate-resilience/fallback"
)

// Invocation is one guarded call as it travels through the chain
type Invocation struct {
	ID       string
	Name     string
	Target   any
	Method   fallback.Signature
	Args     []any
	Fallback string
	Policy   *config.Policy
}

// NewInvocation creates an invocation of method on target under the policy name
func NewInvocation(name string, target any, method fallback.Signature, args []any) *Invocation {
	return &Invocation{
		ID:     uuid.New().String(),
		Name:   name,
		Target: target,
		Method: method,
		Args:   args,
	}
}

// contextKey is a type for context keys to avoid collisions
type contextKey string

const invocationKey contextKey = "resilience:invocation"

// WithInvocation returns a context carrying inv
func WithInvocation(ctx context.Context, inv *Invocation) context.Context {
	return context.WithValue(ctx, invocationKey, inv)
}

// InvocationFromContext returns the invocation the guarded function runs in
func InvocationFromContext(ctx context.Context) (*Invocation, bool) {
	inv, ok := ctx.Value(invocationKey).(*Invocation)
	return inv, ok
}

package config

import (
	"fmt"
	"time"
)

// Built-in policy defaults
const (
	DefaultMaxConcurrentCalls        = 25
	DefaultMaxWaitDuration           = 0 * time.Millisecond
	DefaultWritableStackTraceEnabled = true
	DefaultEventConsumerBufferSize   = 100
)

// Policy is a fully resolved, immutable bulkhead parameter set
type Policy struct {
	maxConcurrentCalls        int
	maxWaitDuration           time.Duration
	writableStackTraceEnabled bool
	eventConsumerBufferSize   int
}

// DefaultPolicy returns a policy holding only built-in defaults
func DefaultPolicy() *Policy {
	p := defaultPolicy()
	return &p
}

func defaultPolicy() Policy {
	return Policy{
		maxConcurrentCalls:        DefaultMaxConcurrentCalls,
		maxWaitDuration:           DefaultMaxWaitDuration,
		writableStackTraceEnabled: DefaultWritableStackTraceEnabled,
		eventConsumerBufferSize:   DefaultEventConsumerBufferSize,
	}
}

// MaxConcurrentCalls returns the concurrency ceiling
func (p *Policy) MaxConcurrentCalls() int {
	return p.maxConcurrentCalls
}

// MaxWaitDuration returns how long a call may wait for a permit
func (p *Policy) MaxWaitDuration() time.Duration {
	return p.maxWaitDuration
}

// WritableStackTraceEnabled reports whether rejection errors carry diagnostic traces
func (p *Policy) WritableStackTraceEnabled() bool {
	return p.writableStackTraceEnabled
}

// EventConsumerBufferSize returns the event buffer size
func (p *Policy) EventConsumerBufferSize() int {
	return p.eventConsumerBufferSize
}

// Equal reports whether two policies hold the same values
func (p *Policy) Equal(other *Policy) bool {
	if p == nil || other == nil {
		return p == other
	}
	return *p == *other
}

func (p *Policy) String() string {
	return fmt.Sprintf("Policy{maxConcurrentCalls=%d, maxWaitDuration=%v, writableStackTraceEnabled=%t, eventConsumerBufferSize=%d}",
		p.maxConcurrentCalls, p.maxWaitDuration, p.writableStackTraceEnabled, p.eventConsumerBufferSize)
}

// Builder holds a policy under construction.
// Setters record the first invalid value and Build reports it.
type Builder struct {
	policy Policy
	err    error
}

// NewBuilder creates a builder seeded with built-in defaults
func NewBuilder() *Builder {
	return &Builder{policy: defaultPolicy()}
}

// NewBuilderFrom creates a builder seeded with the values of base
func NewBuilderFrom(base *Policy) *Builder {
	if base == nil {
		return NewBuilder()
	}
	return &Builder{policy: *base}
}

// MaxConcurrentCalls sets the concurrency ceiling
func (b *Builder) MaxConcurrentCalls(n int) *Builder {
	if err := checkMaxConcurrentCalls(n); err != nil {
		b.fail(err)
		return b
	}
	b.policy.maxConcurrentCalls = n
	return b
}

// MaxWaitDuration sets how long a call may wait for a permit
func (b *Builder) MaxWaitDuration(d time.Duration) *Builder {
	if err := checkMaxWaitDuration(d); err != nil {
		b.fail(err)
		return b
	}
	b.policy.maxWaitDuration = d
	return b
}

// WritableStackTraceEnabled sets the diagnostic trace toggle
func (b *Builder) WritableStackTraceEnabled(enabled bool) *Builder {
	b.policy.writableStackTraceEnabled = enabled
	return b
}

// EventConsumerBufferSize sets the event buffer size
func (b *Builder) EventConsumerBufferSize(n int) *Builder {
	if err := checkEventConsumerBufferSize(n); err != nil {
		b.fail(err)
		return b
	}
	b.policy.eventConsumerBufferSize = n
	return b
}

// Err returns the first invalid value recorded, if any
func (b *Builder) Err() error {
	return b.err
}

// Build returns the immutable policy
func (b *Builder) Build() (*Policy, error) {
	if b.err != nil {
		return nil, b.err
	}
	p := b.policy
	return &p, nil
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

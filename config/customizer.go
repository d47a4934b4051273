package config

import (
	"fmt"
	"sort"
)

// Customizer adjusts a policy under construction after all merging is done
type Customizer interface {
	// Name returns the instance name the customizer applies to
	Name() string

	// Customize mutates the builder; it must be idempotent
	Customize(b *Builder)
}

// CustomizerFunc adapts a function to the Customizer interface
type CustomizerFunc struct {
	name string
	fn   func(b *Builder)
}

// NewCustomizer creates a function-based customizer for the named instance
func NewCustomizer(name string, fn func(b *Builder)) *CustomizerFunc {
	return &CustomizerFunc{name: name, fn: fn}
}

// Name implements Customizer
func (c *CustomizerFunc) Name() string {
	return c.name
}

// Customize implements Customizer
func (c *CustomizerFunc) Customize(b *Builder) {
	c.fn(b)
}

// CustomizerRegistry supplies at most one customizer per instance name
type CustomizerRegistry interface {
	Customizer(name string) (Customizer, bool)
}

// CompositeCustomizer indexes customizers by instance name
type CompositeCustomizer struct {
	customizers map[string]Customizer
}

// NewCompositeCustomizer creates a registry from the given customizers.
// Two customizers for the same name are rejected.
func NewCompositeCustomizer(customizers ...Customizer) (*CompositeCustomizer, error) {
	c := &CompositeCustomizer{
		customizers: make(map[string]Customizer, len(customizers)),
	}

	for _, customizer := range customizers {
		if customizer == nil {
			continue
		}
		name := customizer.Name()
		if _, exists := c.customizers[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCustomizer, name)
		}
		c.customizers[name] = customizer
	}

	return c, nil
}

// Customizer implements CustomizerRegistry
func (c *CompositeCustomizer) Customizer(name string) (Customizer, bool) {
	if c == nil {
		return nil, false
	}
	customizer, ok := c.customizers[name]
	return customizer, ok
}

// Names returns the instance names that have a customizer, sorted
func (c *CompositeCustomizer) Names() []string {
	names := make([]string, 0, len(c.customizers))
	for name := range c.customizers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// noCustomizers is used when resolving shared configs
type noCustomizers struct{}

func (noCustomizers) Customizer(string) (Customizer, bool) {
	return nil, false
}

package config

import (
	"log/slog"
	"slices"
)

// Resolver turns named entries of a Tree into fully resolved policies
type Resolver struct {
	tree        *Tree
	customizers CustomizerRegistry
	logger      *slog.Logger
}

// ResolverOption configures the Resolver
type ResolverOption func(*Resolver)

// WithCustomizers sets the registry consulted at the end of each resolution
func WithCustomizers(customizers CustomizerRegistry) ResolverOption {
	return func(r *Resolver) {
		if customizers != nil {
			r.customizers = customizers
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver over tree
func NewResolver(tree *Tree, options ...ResolverOption) *Resolver {
	if tree == nil {
		tree = NewTree()
	}

	r := &Resolver{
		tree:        tree,
		customizers: noCustomizers{},
		logger:      slog.Default(),
	}

	for _, opt := range options {
		opt(r)
	}

	return r
}

// Resolve is a shorthand for NewResolver(tree, WithCustomizers(customizers)).Resolve(name)
func Resolve(name string, tree *Tree, customizers CustomizerRegistry) (*Policy, error) {
	return NewResolver(tree, WithCustomizers(customizers)).Resolve(name)
}

// Tree returns the tree the resolver reads from
func (r *Resolver) Tree() *Tree {
	return r.tree
}

// Resolve builds the policy for the named instance.
//
// The starting point is the instance's base config when it names one, the
// default config when it does not, or built-in defaults. The instance's own
// fields are applied on top, then the customizer registered for name.
// An unknown instance resolves like an instance with no fields set.
func (r *Resolver) Resolve(name string) (*Policy, error) {
	opts, _ := r.tree.Instance(name)

	b, err := r.seed(opts, nil)
	if err != nil {
		return nil, err
	}
	r.effective(opts).applyTo(b)

	if customizer, ok := r.customizers.Customizer(name); ok {
		customizer.Customize(b)
	}

	policy, err := b.Build()
	if err != nil {
		return nil, err
	}

	r.logger.Debug("resolved policy",
		"instance", name,
		"baseConfig", opts.BaseConfig(),
		"policy", policy.String(),
	)

	return policy, nil
}

// ResolveAll resolves every instance in the tree, in name order.
// The first failure aborts and is returned.
func (r *Resolver) ResolveAll() (map[string]*Policy, error) {
	policies := make(map[string]*Policy, len(r.tree.Instances))
	for _, name := range r.tree.InstanceNames() {
		policy, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}
		policies[name] = policy
	}
	return policies, nil
}

// resolveConfig builds the shared config named name. path lists the configs
// already being resolved further up the chain.
func (r *Resolver) resolveConfig(name string, path []string) (*Policy, error) {
	if slices.Contains(path, name) {
		cycle := append(slices.Clone(path), name)
		return nil, &CyclicConfigurationError{Path: cycle}
	}

	opts, ok := r.tree.Config(name)
	if !ok {
		return nil, &ConfigurationNotFoundError{Name: name}
	}

	path = append(slices.Clone(path), name)
	b, err := r.seed(opts, path)
	if err != nil {
		return nil, err
	}
	r.effective(opts).applyTo(b)

	return b.Build()
}

// seed picks the builder an entry starts from
func (r *Resolver) seed(opts *RawOptions, path []string) (*Builder, error) {
	if base := opts.BaseConfig(); base != "" {
		policy, err := r.resolveConfig(base, path)
		if err != nil {
			return nil, err
		}
		return NewBuilderFrom(policy), nil
	}

	// default seeds everything except the members of its own chain
	if _, ok := r.tree.Config(DefaultConfigName); ok && !slices.Contains(path, DefaultConfigName) {
		policy, err := r.resolveConfig(DefaultConfigName, path)
		if err != nil {
			return nil, err
		}
		return NewBuilderFrom(policy), nil
	}

	return NewBuilder(), nil
}

// effective returns the entry's fields with gaps filled from its base config.
// Fields copied from the base carry the same values as the seeded base policy.
func (r *Resolver) effective(opts *RawOptions) *RawOptions {
	base, ok := r.tree.Config(opts.BaseConfig())
	if !ok {
		return opts.Clone()
	}
	return opts.Merge(base)
}

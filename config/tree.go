package config

import (
	"sort"
)

// DefaultConfigName is the reserved config that seeds instances without a base reference
const DefaultConfigName = "default"

// Tree holds the shared configs and the concrete instance entries.
// It is treated as read-only while a resolution runs.
type Tree struct {
	Configs   map[string]*RawOptions
	Instances map[string]*RawOptions
}

// NewTree creates an empty tree
func NewTree() *Tree {
	return &Tree{
		Configs:   make(map[string]*RawOptions),
		Instances: make(map[string]*RawOptions),
	}
}

// AddConfig registers a shared config entry
func (t *Tree) AddConfig(name string, opts *RawOptions) *Tree {
	if t.Configs == nil {
		t.Configs = make(map[string]*RawOptions)
	}
	t.Configs[name] = opts
	return t
}

// AddInstance registers an instance entry
func (t *Tree) AddInstance(name string, opts *RawOptions) *Tree {
	if t.Instances == nil {
		t.Instances = make(map[string]*RawOptions)
	}
	t.Instances[name] = opts
	return t
}

// Config returns the named shared config
func (t *Tree) Config(name string) (*RawOptions, bool) {
	if t == nil {
		return nil, false
	}
	opts, ok := t.Configs[name]
	return opts, ok && opts != nil
}

// Instance returns the named instance entry
func (t *Tree) Instance(name string) (*RawOptions, bool) {
	if t == nil {
		return nil, false
	}
	opts, ok := t.Instances[name]
	return opts, ok && opts != nil
}

// InstanceOptions returns the effective raw options of an instance:
// its own entry with gaps filled from the default config, the default config
// when the instance is absent, or nil when neither exists. The tree is not modified.
func (t *Tree) InstanceOptions(name string) *RawOptions {
	def, hasDefault := t.Config(DefaultConfigName)
	opts, ok := t.Instance(name)
	switch {
	case !ok && hasDefault:
		return def.Clone()
	case !ok:
		return nil
	case hasDefault:
		return opts.Merge(def)
	default:
		return opts.Clone()
	}
}

// InstanceNames returns all instance names, sorted
func (t *Tree) InstanceNames() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.Instances))
	for name := range t.Instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

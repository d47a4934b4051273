// Package config resolves named bulkhead policies from a sparse, inheritable
// configuration tree.
//
// A Tree holds two maps of RawOptions: shared Configs (including the reserved
// "default") and concrete Instances. An instance may name a base config; base
// configs may name their own. Resolution walks that chain and layers values so
// that the most specific entry always wins:
//
//	built-in defaults < default config < base chain < instance fields < customizer
//
// An instance that names a base config is not seeded from "default" unless its
// base chain is. A missing base config yields ErrConfigurationNotFound; a chain
// that revisits a name yields ErrCyclicConfiguration. Out-of-range values are
// rejected when they are set, with ErrInvalidArgument.
//
// Example usage:
//
//	tree, err := config.Parse([]byte(`
//	configs:
//	  default:
//	    maxConcurrentCalls: 5
//	instances:
//	  backendA:
//	    maxWaitDuration: 10ms
//	`))
//	if err != nil {
//	    return err
//	}
//
//	resolver := config.NewResolver(tree, config.WithLogger(logger))
//	policy, err := resolver.Resolve("backendA")
//	// policy.MaxConcurrentCalls() == 5, policy.MaxWaitDuration() == 10ms
package config

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/glimte/mmate-resilience/config"
)

var (
	// Version information
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "policyctl",
		Short: "Inspect bulkhead policy configuration",
		Long: `policyctl loads a bulkhead configuration tree and shows the policies it
resolves to, including inherited values and defaults.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)

	// Global flags
	var (
		file      string
		key       string
		envPrefix string
		verbose   bool
	)

	rootCmd.PersistentFlags().StringVarP(&file, "file", "f", "resilience.yaml", "Configuration file")
	rootCmd.PersistentFlags().StringVarP(&key, "key", "k", "", "Dotted key of the configuration tree inside the file")
	rootCmd.PersistentFlags().StringVar(&envPrefix, "env-prefix", "", "Prefix of environment overrides")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	loadResolver := func() (*config.Resolver, error) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		var options []config.LoadOption
		if key != "" {
			options = append(options, config.WithKey(key))
		}
		if envPrefix != "" {
			options = append(options, config.WithEnvPrefix(envPrefix))
		}

		tree, err := config.Load(file, options...)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		return config.NewResolver(tree, config.WithLogger(logger)), nil
	}

	// Resolve command
	var output string
	resolveCmd := &cobra.Command{
		Use:   "resolve [instance-names...]",
		Short: "Resolve instance policies",
		Long:  "Resolve the named instances. If no names are provided, every instance in the tree is resolved.",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := loadResolver()
			if err != nil {
				return err
			}

			names := instanceNames(args)
			if len(names) == 0 {
				names = resolver.Tree().InstanceNames()
			}

			policies := make([]namedPolicy, 0, len(names))
			for _, name := range names {
				policy, err := resolver.Resolve(name)
				if err != nil {
					return err
				}
				policies = append(policies, namedPolicy{name: name, policy: policy})
			}

			switch output {
			case "table":
				printPolicies(cmd.OutOrStdout(), policies)
				return nil
			case "yaml":
				return writeYAML(cmd.OutOrStdout(), policies)
			default:
				return fmt.Errorf("unknown output format %q", output)
			}
		},
	}
	resolveCmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, yaml)")

	// Check command
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Resolve every instance and report configuration errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := loadResolver()
			if err != nil {
				return err
			}

			policies, err := resolver.ResolveAll()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "OK: %d instances resolved\n", len(policies))
			return nil
		},
	}

	// Explain command
	explainCmd := &cobra.Command{
		Use:   "explain <instance-name>",
		Short: "Show the inheritance chain of an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := loadResolver()
			if err != nil {
				return err
			}

			name := strings.ToLower(args[0])
			policy, err := resolver.Resolve(name)
			if err != nil {
				return err
			}

			printChain(cmd.OutOrStdout(), resolver.Tree(), name)
			fmt.Fprintf(cmd.OutOrStdout(), "\nResolved: %s\n", policy)
			return nil
		},
	}

	rootCmd.AddCommand(resolveCmd, checkCmd, explainCmd)
	return rootCmd
}

// instanceNames folds names the way config.Load folds the tree
func instanceNames(args []string) []string {
	names := make([]string, len(args))
	for i, arg := range args {
		names[i] = strings.ToLower(arg)
	}
	return names
}

type namedPolicy struct {
	name   string
	policy *config.Policy
}

type policyDocument struct {
	MaxConcurrentCalls        int    `yaml:"maxConcurrentCalls"`
	MaxWaitDuration           string `yaml:"maxWaitDuration"`
	WritableStackTraceEnabled bool   `yaml:"writableStackTraceEnabled"`
	EventConsumerBufferSize   int    `yaml:"eventConsumerBufferSize"`
}

func writeYAML(out io.Writer, policies []namedPolicy) error {
	doc := make(map[string]policyDocument, len(policies))
	for _, p := range policies {
		doc[p.name] = policyDocument{
			MaxConcurrentCalls:        p.policy.MaxConcurrentCalls(),
			MaxWaitDuration:           p.policy.MaxWaitDuration().String(),
			WritableStackTraceEnabled: p.policy.WritableStackTraceEnabled(),
			EventConsumerBufferSize:   p.policy.EventConsumerBufferSize(),
		}
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{"instances": doc}); err != nil {
		return fmt.Errorf("failed to encode policies: %w", err)
	}
	return enc.Close()
}

func printPolicies(out io.Writer, policies []namedPolicy) {
	if len(policies) == 0 {
		fmt.Fprintln(out, "No instances found")
		return
	}

	fmt.Fprintf(out, "%-30s %-12s %-12s %-12s %-12s\n", "Instance", "MaxCalls", "MaxWait", "StackTrace", "EventBuffer")
	fmt.Fprintln(out, strings.Repeat("-", 82))

	for _, p := range policies {
		fmt.Fprintf(out, "%-30s %-12d %-12s %-12t %-12d\n",
			truncate(p.name, 30),
			p.policy.MaxConcurrentCalls(),
			p.policy.MaxWaitDuration(),
			p.policy.WritableStackTraceEnabled(),
			p.policy.EventConsumerBufferSize(),
		)
	}
}

// printChain lists the entries an instance inherits from, nearest first
func printChain(out io.Writer, tree *config.Tree, name string) {
	opts, ok := tree.Instance(name)
	if !ok {
		fmt.Fprintf(out, "instance %s: not configured\n", name)
	} else {
		fmt.Fprintf(out, "instance %s: %s\n", name, describe(opts))
	}

	seen := map[string]bool{}
	base := ""
	if ok {
		base = opts.BaseConfig()
	}
	if base == "" {
		base = config.DefaultConfigName
	}

	for base != "" && !seen[base] {
		seen[base] = true
		cfg, exists := tree.Config(base)
		if !exists {
			break
		}
		fmt.Fprintf(out, "  config %s: %s\n", base, describe(cfg))

		next := cfg.BaseConfig()
		if next == "" && base != config.DefaultConfigName {
			next = config.DefaultConfigName
		}
		base = next
	}

	fmt.Fprintf(out, "  built-in: %s\n", config.DefaultPolicy())
}

func describe(opts *config.RawOptions) string {
	var fields []string
	if n, ok := opts.MaxConcurrentCalls(); ok {
		fields = append(fields, fmt.Sprintf("maxConcurrentCalls=%d", n))
	}
	if d, ok := opts.MaxWaitDuration(); ok {
		fields = append(fields, fmt.Sprintf("maxWaitDuration=%s", d))
	}
	if enabled, ok := opts.WritableStackTraceEnabled(); ok {
		fields = append(fields, fmt.Sprintf("writableStackTraceEnabled=%t", enabled))
	}
	if n, ok := opts.EventConsumerBufferSize(); ok {
		fields = append(fields, fmt.Sprintf("eventConsumerBufferSize=%d", n))
	}
	if base := opts.BaseConfig(); base != "" {
		fields = append(fields, "baseConfig="+base)
	}
	if len(fields) == 0 {
		return "(empty)"
	}
	return strings.Join(fields, " ")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

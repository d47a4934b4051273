package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidArgument       = errors.New("config: invalid argument")
	ErrConfigurationNotFound = errors.New("config: configuration not found")
	ErrCyclicConfiguration   = errors.New("config: cyclic base configuration")
	ErrDuplicateCustomizer   = errors.New("config: duplicate customizer")
)

// InvalidArgumentError reports an option value outside its allowed range
type InvalidArgumentError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("%s must be %s, got %v", e.Field, e.Reason, e.Value)
}

func (e *InvalidArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

// ConfigurationNotFoundError is returned when a base config reference has no entry
type ConfigurationNotFoundError struct {
	Name string
}

func (e *ConfigurationNotFoundError) Error() string {
	return fmt.Sprintf("configuration with name '%s' does not exist", e.Name)
}

func (e *ConfigurationNotFoundError) Unwrap() error {
	return ErrConfigurationNotFound
}

// CyclicConfigurationError carries the base config chain that revisited a name.
// The last element of Path is the name seen twice.
type CyclicConfigurationError struct {
	Path []string
}

func (e *CyclicConfigurationError) Error() string {
	return fmt.Sprintf("cyclic base configuration: %s", strings.Join(e.Path, " -> "))
}

func (e *CyclicConfigurationError) Unwrap() error {
	return ErrCyclicConfiguration
}

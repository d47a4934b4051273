package config

import (
	"time"
)

// RawOptions is the sparse option record of one named config or instance entry.
// A field that was never set is distinguishable from one set to its zero value.
// Setters validate eagerly and leave the record untouched on error.
type RawOptions struct {
	maxConcurrentCalls        *int
	maxWaitDuration           *time.Duration
	writableStackTraceEnabled *bool
	eventConsumerBufferSize   *int
	baseConfig                string
}

// RawOption sets one field of a RawOptions record
type RawOption func(*RawOptions) error

// WithMaxConcurrentCalls sets the concurrency limit
func WithMaxConcurrentCalls(n int) RawOption {
	return func(o *RawOptions) error {
		return o.SetMaxConcurrentCalls(n)
	}
}

// WithMaxWaitDuration sets how long a call may wait for a permit
func WithMaxWaitDuration(d time.Duration) RawOption {
	return func(o *RawOptions) error {
		return o.SetMaxWaitDuration(d)
	}
}

// WithWritableStackTraceEnabled toggles diagnostic traces on rejection errors
func WithWritableStackTraceEnabled(enabled bool) RawOption {
	return func(o *RawOptions) error {
		o.SetWritableStackTraceEnabled(enabled)
		return nil
	}
}

// WithEventConsumerBufferSize sets the event buffer size
func WithEventConsumerBufferSize(n int) RawOption {
	return func(o *RawOptions) error {
		return o.SetEventConsumerBufferSize(n)
	}
}

// WithBaseConfig points the entry at a shared config
func WithBaseConfig(name string) RawOption {
	return func(o *RawOptions) error {
		o.SetBaseConfig(name)
		return nil
	}
}

// NewRawOptions creates a record with the given fields set.
// The first invalid value aborts construction.
func NewRawOptions(options ...RawOption) (*RawOptions, error) {
	o := &RawOptions{}
	for _, opt := range options {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// SetMaxConcurrentCalls sets the concurrency limit, which must be at least 1
func (o *RawOptions) SetMaxConcurrentCalls(n int) error {
	if err := checkMaxConcurrentCalls(n); err != nil {
		return err
	}
	o.maxConcurrentCalls = &n
	return nil
}

// SetMaxWaitDuration sets the maximum wait, which must not be negative
func (o *RawOptions) SetMaxWaitDuration(d time.Duration) error {
	if err := checkMaxWaitDuration(d); err != nil {
		return err
	}
	o.maxWaitDuration = &d
	return nil
}

// SetWritableStackTraceEnabled sets the diagnostic trace toggle
func (o *RawOptions) SetWritableStackTraceEnabled(enabled bool) {
	o.writableStackTraceEnabled = &enabled
}

// SetEventConsumerBufferSize sets the event buffer size, which must be at least 1
func (o *RawOptions) SetEventConsumerBufferSize(n int) error {
	if err := checkEventConsumerBufferSize(n); err != nil {
		return err
	}
	o.eventConsumerBufferSize = &n
	return nil
}

// SetBaseConfig sets the base config reference. An empty name clears it.
func (o *RawOptions) SetBaseConfig(name string) {
	o.baseConfig = name
}

// MaxConcurrentCalls returns the concurrency limit and whether it is set
func (o *RawOptions) MaxConcurrentCalls() (int, bool) {
	if o == nil || o.maxConcurrentCalls == nil {
		return 0, false
	}
	return *o.maxConcurrentCalls, true
}

// MaxWaitDuration returns the maximum wait and whether it is set
func (o *RawOptions) MaxWaitDuration() (time.Duration, bool) {
	if o == nil || o.maxWaitDuration == nil {
		return 0, false
	}
	return *o.maxWaitDuration, true
}

// WritableStackTraceEnabled returns the trace toggle and whether it is set
func (o *RawOptions) WritableStackTraceEnabled() (bool, bool) {
	if o == nil || o.writableStackTraceEnabled == nil {
		return false, false
	}
	return *o.writableStackTraceEnabled, true
}

// EventConsumerBufferSize returns the buffer size and whether it is set
func (o *RawOptions) EventConsumerBufferSize() (int, bool) {
	if o == nil || o.eventConsumerBufferSize == nil {
		return 0, false
	}
	return *o.eventConsumerBufferSize, true
}

// BaseConfig returns the base config reference, or "" when there is none
func (o *RawOptions) BaseConfig() string {
	if o == nil {
		return ""
	}
	return o.baseConfig
}

// IsEmpty reports whether no field is set
func (o *RawOptions) IsEmpty() bool {
	return o == nil || (o.maxConcurrentCalls == nil &&
		o.maxWaitDuration == nil &&
		o.writableStackTraceEnabled == nil &&
		o.eventConsumerBufferSize == nil &&
		o.baseConfig == "")
}

// Clone returns a deep copy
func (o *RawOptions) Clone() *RawOptions {
	c := &RawOptions{}
	if o == nil {
		return c
	}
	c.baseConfig = o.baseConfig
	if o.maxConcurrentCalls != nil {
		v := *o.maxConcurrentCalls
		c.maxConcurrentCalls = &v
	}
	if o.maxWaitDuration != nil {
		v := *o.maxWaitDuration
		c.maxWaitDuration = &v
	}
	if o.writableStackTraceEnabled != nil {
		v := *o.writableStackTraceEnabled
		c.writableStackTraceEnabled = &v
	}
	if o.eventConsumerBufferSize != nil {
		v := *o.eventConsumerBufferSize
		c.eventConsumerBufferSize = &v
	}
	return c
}

// Merge returns a copy of o whose unset fields are filled from base.
// Fields set on o are never overwritten and neither input is modified.
// The base config reference is not inherited.
func (o *RawOptions) Merge(base *RawOptions) *RawOptions {
	merged := o.Clone()
	if base == nil {
		return merged
	}
	b := base.Clone()
	if merged.maxConcurrentCalls == nil {
		merged.maxConcurrentCalls = b.maxConcurrentCalls
	}
	if merged.maxWaitDuration == nil {
		merged.maxWaitDuration = b.maxWaitDuration
	}
	if merged.writableStackTraceEnabled == nil {
		merged.writableStackTraceEnabled = b.writableStackTraceEnabled
	}
	if merged.eventConsumerBufferSize == nil {
		merged.eventConsumerBufferSize = b.eventConsumerBufferSize
	}
	return merged
}

// applyTo copies every set field onto the builder
func (o *RawOptions) applyTo(b *Builder) {
	if v, ok := o.MaxConcurrentCalls(); ok {
		b.MaxConcurrentCalls(v)
	}
	if v, ok := o.MaxWaitDuration(); ok {
		b.MaxWaitDuration(v)
	}
	if v, ok := o.WritableStackTraceEnabled(); ok {
		b.WritableStackTraceEnabled(v)
	}
	if v, ok := o.EventConsumerBufferSize(); ok {
		b.EventConsumerBufferSize(v)
	}
}

func checkMaxConcurrentCalls(n int) error {
	if n < 1 {
		return &InvalidArgumentError{Field: "maxConcurrentCalls", Value: n, Reason: "greater than or equal to 1"}
	}
	return nil
}

func checkMaxWaitDuration(d time.Duration) error {
	if d < 0 {
		return &InvalidArgumentError{Field: "maxWaitDuration", Value: d, Reason: "greater than or equal to 0"}
	}
	return nil
}

func checkEventConsumerBufferSize(n int) error {
	if n < 1 {
		return &InvalidArgumentError{Field: "eventConsumerBufferSize", Value: n, Reason: "greater than or equal to 1"}
	}
	return nil
}

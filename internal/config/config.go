// Package config defines the validated configuration knobs a cache
// instance is constructed with.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds a cache instance's construction-time knobs.
type Config struct {
	Identifier       string        `validate:"required"`
	Validate         bool
	DeferredTimeout  time.Duration `validate:"required,gt=0"`
	LockTimeout      time.Duration `validate:"required,gt=0"`
	EnvironmentClear bool
	ConnectClear     bool
	Dir              string `validate:"required"`
}

// Option mutates a Config being built by New.
type Option func(*Config)

// WithValidate enables validation mode: every hit is recomputed and
// byte-compared against the stored payload.
func WithValidate(v bool) Option {
	return func(c *Config) { c.Validate = v }
}

// WithDeferredTimeout overrides the default 30s deferred-liveness window.
func WithDeferredTimeout(d time.Duration) Option {
	return func(c *Config) { c.DeferredTimeout = d }
}

// WithLockTimeout overrides the default 1s L_file acquisition timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(c *Config) { c.LockTimeout = d }
}

// WithEnvironmentClear overrides the default (true) clear-on-new-environment
// policy.
func WithEnvironmentClear(v bool) Option {
	return func(c *Config) { c.EnvironmentClear = v }
}

// WithConnectClear overrides the default (false) clear-on-every-connect
// policy.
func WithConnectClear(v bool) Option {
	return func(c *Config) { c.ConnectClear = v }
}

// WithDir overrides the default cache directory
// (filepath.Join(os.TempDir(), "opcache")).
func WithDir(dir string) Option {
	return func(c *Config) { c.Dir = dir }
}

var validate = validator.New()

// New builds a Config for identifier, applying opts over the documented
// defaults, then validates it.
func New(identifier string, defaultDir string, opts ...Option) (Config, error) {
	c := Config{
		Identifier:       identifier,
		DeferredTimeout:  30 * time.Second,
		LockTimeout:      1 * time.Second,
		EnvironmentClear: true,
		ConnectClear:     false,
		Dir:              defaultDir,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if err := validate.Struct(c); err != nil {
		return Config{}, err
	}
	return c, nil
}

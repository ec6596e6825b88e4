package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

type options struct {
	prefix   string
	files    []string
	override map[string]string
}

// Option adjusts how Load reads the environment.
type Option func(*options)

// WithPrefix prepends prefix to every env tag, so the same struct can be
// loaded twice for different components (e.g. "CONTROL_" and "TENANT_").
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithEnvFiles loads the given dotenv files instead of the default ".env".
// Missing files are ignored.
func WithEnvFiles(files ...string) Option {
	return func(o *options) { o.files = files }
}

// WithEnvironment supplies the environment map directly and skips dotenv and
// os.Environ entirely. Intended for tests.
func WithEnvironment(vars map[string]string) Option {
	return func(o *options) { o.override = vars }
}

// Load parses environment variables into v based on its `env` struct tags.
//
// The first call loads dotenv files into the process environment; variables
// already set are never overwritten.
//
//	var cfg connpool.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	envOpts := env.Options{Prefix: o.prefix}
	if o.override != nil {
		envOpts.Environment = o.override
	} else {
		loadDotenv(o.files)
	}

	if err := env.ParseWithOptions(v, envOpts); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad works like Load but panics on failure. Use it for configuration
// the process cannot start without.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

func loadDotenv(files []string) {
	dotenvOnce.Do(func() {
		// The files are optional; absence is not an error.
		_ = godotenv.Load(files...)
	})
}

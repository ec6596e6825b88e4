package connpool

import "time"

// Config holds pool settings loaded from the environment.
type Config struct {
	Capacity      int           `env:"CONNPOOL_CAPACITY" envDefault:"100"`
	TTL           time.Duration `env:"CONNPOOL_TTL" envDefault:"30m"`
	Width         int           `env:"CONNPOOL_WIDTH" envDefault:"5"`
	SweepInterval time.Duration `env:"CONNPOOL_SWEEP_INTERVAL" envDefault:"1m"`
	CloseTimeout  time.Duration `env:"CONNPOOL_CLOSE_TIMEOUT" envDefault:"30s"`
	// MasterKey is the base64 encoded key used to decrypt tenant credentials.
	MasterKey string `env:"CONNPOOL_MASTER_KEY"`
	// FallbackDSN is the database of the built-in pair served on the bare
	// base domain before a root tenant is registered.
	FallbackDSN string `env:"CONNPOOL_FALLBACK_DSN"`
}

// Defaults.
const (
	DefaultCapacity      = 100
	DefaultTTL           = 30 * time.Minute
	DefaultWidth         = 5
	DefaultSweepInterval = time.Minute
	DefaultCloseTimeout  = 30 * time.Second
)

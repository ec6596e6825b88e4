package jwt

import "time"

// Config holds session token settings.
type Config struct {
	SigningKey string        `env:"SESSION_SIGNING_KEY,required"`
	Issuer     string        `env:"SESSION_ISSUER" envDefault:"tenantgate"`
	TTL        time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	Leeway     time.Duration `env:"SESSION_LEEWAY" envDefault:"30s"`
}

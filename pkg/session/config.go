package session

// Config holds session transport configuration.
type Config struct {
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"sid"`
	HeaderName string `env:"SESSION_HEADER_NAME" envDefault:"Authorization"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		CookieName: "sid",
		HeaderName: "Authorization",
	}
}

package bridge

import "time"

// Config holds bridge settings.
type Config struct {
	// ResponseTimeout bounds the wait for the target's response. Zero
	// waits forever.
	ResponseTimeout time.Duration
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{}
}

// Option modifies a Config.
type Option func(*Config)

// WithResponseTimeout sets [Config.ResponseTimeout].
func WithResponseTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d < 0 {
			d = 0
		}
		c.ResponseTimeout = d
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

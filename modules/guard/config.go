package guard

import "time"

// Config holds brute-force guard configuration.
type Config struct {
	// Threshold is the number of failures tolerated inside Window; one more trips the lockout.
	Threshold int

	// Window is how far back failures are counted.
	Window time.Duration

	// Lockout is how long every authentication attempt is refused once tripped.
	Lockout time.Duration
}

// DefaultConfig returns the stock limits: more than 2 failures in 1s locks
// authentication for 60s.
func DefaultConfig() Config {
	return Config{
		Threshold: 2,
		Window:    time.Second,
		Lockout:   60 * time.Second,
	}
}

// Option is a function that modifies Config.
type Option func(*Config)

// WithThreshold sets the failure threshold.
func WithThreshold(n int) Option {
	return func(c *Config) {
		c.Threshold = n
	}
}

// WithWindow sets the sliding window size.
func WithWindow(d time.Duration) Option {
	return func(c *Config) {
		c.Window = d
	}
}

// WithLockout sets the lockout duration.
func WithLockout(d time.Duration) Option {
	return func(c *Config) {
		c.Lockout = d
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.Threshold <= 0 {
		c.Threshold = def.Threshold
	}
	if c.Window <= 0 {
		c.Window = def.Window
	}
	if c.Lockout <= 0 {
		c.Lockout = def.Lockout
	}
	return c
}

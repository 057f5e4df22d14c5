package rooms

import "time"

// Field limits.
const (
	MaxRoomNameLength    = 100
	MaxDisplayNameLength = 50
	MaxPasswordLength    = 128
	MaxPageKeyLength     = 64
	MaxMessageLength     = 5000
	MaxTextLength        = 100_000
)

// Config holds registry limits and lifecycle timings.
type Config struct {
	// ChatCap bounds each room's chat log; the oldest message is evicted first.
	ChatCap int

	// MaxPages bounds the number of pages per room.
	MaxPages int

	// InactivityTimeout is how long an empty room survives without activity.
	InactivityTimeout time.Duration

	// SweepInterval is how often empty rooms are checked for eviction.
	SweepInterval time.Duration
}

// DefaultConfig returns the stock limits.
func DefaultConfig() Config {
	return Config{
		ChatCap:           500,
		MaxPages:          20,
		InactivityTimeout: time.Hour,
		SweepInterval:     30 * time.Minute,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.ChatCap <= 0 {
		c.ChatCap = def.ChatCap
	}
	if c.MaxPages <= 0 {
		c.MaxPages = def.MaxPages
	}
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = def.InactivityTimeout
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = def.SweepInterval
	}
	return c
}

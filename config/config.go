// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/shared-rooms/modules/audit"
	"github.com/example/shared-rooms/modules/guard"
	"github.com/example/shared-rooms/modules/rooms"
	"github.com/example/shared-rooms/modules/session"
)

var (
	// ErrMissingAdminSecret is returned when neither ADMIN_PASSWORD nor
	// ADMIN_PASSWORD_HASH is set.
	ErrMissingAdminSecret = errors.New("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH must be set")
	// ErrMissingPasswordKey is returned when ROOM_PASSWORD_KEY is unset.
	ErrMissingPasswordKey = errors.New("ROOM_PASSWORD_KEY must be set")
)

// Config holds all runtime settings.
type Config struct {
	Port string

	// Exactly one of AdminPassword and AdminPasswordHash is used; the hash
	// wins when both are set.
	AdminPassword     string
	AdminPasswordHash string
	RoomPasswordKey   string

	Rooms  rooms.Config
	Guard  guard.Config
	Outbox int
	Audit  int

	CORSAllowedOrigins string
}

// Load reads the environment. Malformed numbers and durations fall back to
// their defaults.
func Load() (*Config, error) {
	roomDefaults := rooms.DefaultConfig()
	guardDefaults := guard.DefaultConfig()

	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		RoomPasswordKey:   os.Getenv("ROOM_PASSWORD_KEY"),
		Rooms: rooms.Config{
			ChatCap:           getEnvInt("CHAT_CAP", roomDefaults.ChatCap),
			MaxPages:          getEnvInt("MAX_PAGES", roomDefaults.MaxPages),
			InactivityTimeout: getEnvDuration("INACTIVITY_TIMEOUT", roomDefaults.InactivityTimeout),
			SweepInterval:     getEnvDuration("SWEEP_INTERVAL", roomDefaults.SweepInterval),
		},
		Guard: guard.Config{
			Threshold: getEnvInt("GUARD_THRESHOLD", guardDefaults.Threshold),
			Window:    getEnvDuration("GUARD_WINDOW", guardDefaults.Window),
			Lockout:   getEnvDuration("GUARD_LOCKOUT", guardDefaults.Lockout),
		},
		Outbox:             getEnvInt("OUTBOX_SIZE", session.DefaultOutboxSize),
		Audit:              getEnvInt("AUDIT_CAPACITY", audit.DefaultCapacity),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
	}

	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		return nil, ErrMissingAdminSecret
	}
	if cfg.RoomPasswordKey == "" {
		return nil, ErrMissingPasswordKey
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", cfg.Port, err)
	}
	return cfg, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Origins returns the configured CORS origins as a list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "admin")
	t.Setenv("ROOM_PASSWORD_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, 500, cfg.Rooms.ChatCap)
	assert.Equal(t, 20, cfg.Rooms.MaxPages)
	assert.Equal(t, time.Hour, cfg.Rooms.InactivityTimeout)
	assert.Equal(t, 2, cfg.Guard.Threshold)
	assert.Equal(t, time.Second, cfg.Guard.Window)
	assert.Equal(t, time.Minute, cfg.Guard.Lockout)
	assert.Equal(t, 256, cfg.Outbox)
	assert.Equal(t, []string{"*"}, cfg.Origins())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD_HASH", "$2a$12$abc")
	t.Setenv("ROOM_PASSWORD_KEY", "key")
	t.Setenv("PORT", "8080")
	t.Setenv("CHAT_CAP", "50")
	t.Setenv("GUARD_LOCKOUT", "5m")
	t.Setenv("SWEEP_INTERVAL", "not-a-duration")
	t.Setenv("MAX_PAGES", "-3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 50, cfg.Rooms.ChatCap)
	assert.Equal(t, 5*time.Minute, cfg.Guard.Lockout)
	assert.Equal(t, 30*time.Minute, cfg.Rooms.SweepInterval)
	assert.Equal(t, 20, cfg.Rooms.MaxPages)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins())
}

func TestLoad_MissingSecrets(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{"no admin secret", map[string]string{"ROOM_PASSWORD_KEY": "k"}, ErrMissingAdminSecret},
		{"no password key", map[string]string{"ADMIN_PASSWORD": "a"}, ErrMissingPasswordKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ADMIN_PASSWORD", "")
			t.Setenv("ADMIN_PASSWORD_HASH", "")
			t.Setenv("ROOM_PASSWORD_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "admin")
	t.Setenv("ROOM_PASSWORD_KEY", "key")
	t.Setenv("PORT", "http")

	_, err := Load()
	assert.Error(t, err)
}

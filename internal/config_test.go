package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/loadshare")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.SuccessRedirectDelay)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "local", cfg.StorageProvider)
	assert.False(t, cfg.SecureCookies())
}

func TestNewConfig_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := NewConfig()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestNewConfig_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/loadshare")
	t.Setenv("PORT", "9090")
	t.Setenv("SUCCESS_REDIRECT_DELAY", "500ms")
	t.Setenv("BASE_URL", "https://loadshare.example.com")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("WORKER_ENABLED", "false")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.SuccessRedirectDelay)
	assert.True(t, cfg.SecureCookies())
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.False(t, cfg.WorkerEnabled)
}

func TestNewConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown storage", map[string]string{"STORAGE_PROVIDER": "s3"}, "STORAGE_PROVIDER"},
		{"r2 without account", map[string]string{"STORAGE_PROVIDER": "r2"}, "R2_ACCOUNT_ID"},
		{"negative delay", map[string]string{"SUCCESS_REDIRECT_DELAY": "-1s"}, "SUCCESS_REDIRECT_DELAY"},
		{"zero rate limit", map[string]string{"AUTH_RATE_LIMIT": "0"}, "AUTH_RATE_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/loadshare")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := NewConfig()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("COOKIE_SECURE", "")
	t.Setenv("PORT", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("SHUTDOWN_TIMEOUT", "")
	t.Setenv("REDIS_DB", "")
}

func TestFromEnv_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, SessionBackendSQL, cfg.SessionBackend)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.False(t, cfg.CookieSecure)
}

func TestFromEnv_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example ,")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.CookieSecure)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"missing secret", "JWT_SECRET", ""},
		{"short secret", "JWT_SECRET", "short"},
		{"unknown driver", "DB_DRIVER", "postgres"},
		{"bad ttl", "SESSION_TTL", "tomorrow"},
		{"redis without addr", "SESSION_BACKEND", "redis"},
		{"bad bool", "COOKIE_SECURE", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestValidate_MySQLRequiresConnectionSettings(t *testing.T) {
	cfg := &Config{
		DBDriver:       DriverMySQL,
		DBHost:         "db",
		JWTSecret:      "0123456789abcdef",
		SessionTTL:     time.Hour,
		SessionBackend: SessionBackendSQL,
	}
	assert.Error(t, cfg.Validate())

	cfg.DBUser = "todo"
	cfg.DBName = "todo"
	assert.NoError(t, cfg.Validate())
}

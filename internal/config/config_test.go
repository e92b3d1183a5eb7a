package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for _, key := range []string{
		"ENV", "PORT", "DATABASE_URL", "JWT_SECRET", "JWT_ACCESS_TTL", "JWT_REFRESH_TTL",
		"LOG_LEVEL", "LOG_FORMAT", "CORS_ALLOWED_ORIGINS", "REQUEST_TIMEOUT",
		"SHUTDOWN_TIMEOUT", "SEED_DEV_DATA", "SEED_FILE",
	} {
		t.Setenv(key, "")
	}
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t, map[string]string{"DATABASE_URL": "postgres://localhost/meetup"})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.False(t, cfg.SeedDevData)
	assert.Empty(t, cfg.CORSAllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	setEnv(t, map[string]string{
		"DATABASE_URL":         "postgres://localhost/meetup",
		"ENV":                  "production",
		"JWT_SECRET":           "s3cret",
		"JWT_ACCESS_TTL":       "15m",
		"CORS_ALLOWED_ORIGINS": "http://localhost:3000, http://localhost:5173,",
		"SEED_DEV_DATA":        "true",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.SeedDevData)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing database url", map[string]string{}},
		{"bad duration", map[string]string{"DATABASE_URL": "postgres://x", "JWT_ACCESS_TTL": "soon"}},
		{"bad bool", map[string]string{"DATABASE_URL": "postgres://x", "SEED_DEV_DATA": "maybe"}},
		{"missing secret in production", map[string]string{"DATABASE_URL": "postgres://x", "ENV": "production"}},
		{"negative ttl", map[string]string{"DATABASE_URL": "postgres://x", "JWT_REFRESH_TTL": "-1h"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.env)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

package config_test

import (
	"testing"
	"time"

	"todo-manager/backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.GetServerAddr())
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.False(t, cfg.IsProduction())

	assert.Equal(t, "localhost:6379", cfg.GetRedisAddr())
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, 4, cfg.Worker.Concurrency)

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerMin)

	assert.Equal(t, "07:00", cfg.Digest.Time)
	assert.Equal(t, "Asia/Manila", cfg.Digest.Timezone)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_MAX_OPEN_CONNS", "50")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("DIGEST_TIME", "06:30")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "06:30", cfg.Digest.Time)
}

func TestLoadConfigIgnoresMalformedValues(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "lots")
	t.Setenv("READ_TIMEOUT", "soon")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Database.MaxOpenConns, "unparseable values fall back to defaults")
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}

func TestDatabaseDSN(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "todo")
	t.Setenv("DB_PASSWORD", "hunter2")
	t.Setenv("DB_NAME", "todo_prod")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t,
		"host=db.internal port=5432 user=todo password=hunter2 dbname=todo_prod sslmode=disable",
		cfg.GetDatabaseDSN())
}

func TestProductionRequiresDatabasePassword(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "an-actual-secret")

	_, err := config.LoadConfig()
	assert.ErrorContains(t, err, "database password")
}

func TestProductionRequiresJWTSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DB_PASSWORD", "hunter2")

	_, err := config.LoadConfig()
	assert.ErrorContains(t, err, "JWT secret")
}

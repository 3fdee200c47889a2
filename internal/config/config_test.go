package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/caterly")
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 100.0, cfg.AllocationFallbackWeight)
	assert.Equal(t, 587, cfg.SMTPConfig.Port)
	assert.Equal(t, "Caterly", cfg.CompanyConfig.Name)
	assert.False(t, cfg.R2Config.Enabled())
	assert.True(t, cfg.Production())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	// envconfig treats a set-but-empty variable as present
	for _, k := range []string{"DATABASE_URL", "JWT_SECRET", "JWT_REFRESH_SECRET"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_R2(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/caterly")
	t.Setenv("JWT_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "b")
	t.Setenv("R2_ENDPOINT", "https://example.r2.cloudflarestorage.com")
	t.Setenv("R2_BUCKET_NAME", "documents")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.R2Config.Enabled())
	assert.Equal(t, "documents", cfg.R2Config.Bucket)
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := Load(nil)
		require.NoError(t, err)
		assert.Equal(t, "workflow-builder", cfg.AppName)
		assert.Equal(t, "INFO", cfg.AppLogLevel)
		assert.Equal(t, 3000, cfg.AppPort)
		assert.False(t, cfg.WorkflowRejectCycles)
		assert.Empty(t, cfg.DatabaseURL)
	})

	t.Run("ReadsEnvironment", func(t *testing.T) {
		t.Setenv("APP_NAME", "builder-test")
		t.Setenv("APP_PORT", "8081")
		t.Setenv("DATABASE_URL", "postgres://localhost/builder")
		t.Setenv("AUTH_JWT_SECRET", "s3cret")
		t.Setenv("WORKFLOW_REJECT_CYCLES", "true")

		cfg, err := Load(nil)
		require.NoError(t, err)
		assert.Equal(t, "builder-test", cfg.AppName)
		assert.Equal(t, 8081, cfg.AppPort)
		assert.Equal(t, "postgres://localhost/builder", cfg.DatabaseURL)
		assert.Equal(t, "s3cret", cfg.AuthJWTSecret)
		assert.True(t, cfg.WorkflowRejectCycles)
	})

	t.Run("RejectsBadPort", func(t *testing.T) {
		t.Setenv("APP_PORT", "70000")
		_, err := Load(nil)
		assert.Error(t, err)
	})
}

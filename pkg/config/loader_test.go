package config_test

import (
	"testing"
	"time"

	"github.com/genflow/genflow/pkg/config"
	"github.com/genflow/genflow/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Should fall back to defaults without environment overrides", func(t *testing.T) {
		cfg, err := config.Load()
		require.NoError(t, err)
		assert.Equal(t, 128, cfg.Queue.BufferSize)
		assert.Equal(t, 10*time.Minute, cfg.Queue.ListenTimeout)
		assert.Equal(t, 10*time.Second, cfg.Pipeline.HeartbeatInterval)
		assert.Equal(t, 5, cfg.Agent.MaxIterations)
		assert.Equal(t, logger.InfoLevel, cfg.Log.Level)
	})

	t.Run("Should override sections from GENFLOW_ environment variables", func(t *testing.T) {
		t.Setenv("GENFLOW_LOG_LEVEL", "debug")
		t.Setenv("GENFLOW_QUEUE_LISTEN_TIMEOUT", "5m")
		t.Setenv("GENFLOW_QUEUE_BUFFER_SIZE", "64")
		t.Setenv("GENFLOW_AGENT_MAX_ITERATIONS", "7")
		t.Setenv("GENFLOW_REDIS_HOST", "redis.internal")

		cfg, err := config.Load()
		require.NoError(t, err)
		assert.Equal(t, logger.DebugLevel, cfg.Log.Level)
		assert.Equal(t, 5*time.Minute, cfg.Queue.ListenTimeout)
		assert.Equal(t, 64, cfg.Queue.BufferSize)
		assert.Equal(t, 7, cfg.Agent.MaxIterations)
		assert.Equal(t, "redis.internal", cfg.Redis.Host)
	})

	t.Run("Should parse extended duration units", func(t *testing.T) {
		t.Setenv("GENFLOW_QUEUE_STOP_FLAG_TTL", "1d")
		cfg, err := config.Load()
		require.NoError(t, err)
		assert.Equal(t, 24*time.Hour, cfg.Queue.StopFlagTTL)
	})

	t.Run("Should reject malformed durations", func(t *testing.T) {
		t.Setenv("GENFLOW_PIPELINE_HEARTBEAT_INTERVAL", "soon")
		_, err := config.Load()
		assert.Error(t, err)
	})
}

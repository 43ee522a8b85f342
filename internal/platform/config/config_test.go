package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, ":3000", cfg.Server.Addr())
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 20, cfg.RateLimit.Submissions)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Kafka.BrokerList())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("SUBMISSION_RATE_LIMIT", "5")
	t.Setenv("SUBMISSION_RATE_WINDOW", "30s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Server.Addr())
	assert.Equal(t, 5, cfg.RateLimit.Submissions)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.BrokerList())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	t.Setenv("SUBMISSION_RATE_LIMIT", "0")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "SUBMISSION_RATE_LIMIT")
}

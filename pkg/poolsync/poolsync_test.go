package poolsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigAppliesDefaults(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()

	assert.Equal(t, 10*time.Minute, cfg.ConfigSyncInterval)
	assert.Equal(t, 30*time.Second, cfg.PoolSyncInterval)
	assert.Equal(t, 5, cfg.RequestsPerSecond)
}

func TestConfigPreservesExplicitValues(t *testing.T) {
	cfg := Config{ConfigSyncInterval: time.Minute, PoolSyncInterval: time.Second, RequestsPerSecond: 50}
	cfg.applyDefaults()

	assert.Equal(t, time.Minute, cfg.ConfigSyncInterval)
	assert.Equal(t, time.Second, cfg.PoolSyncInterval)
	assert.Equal(t, 50, cfg.RequestsPerSecond)
}

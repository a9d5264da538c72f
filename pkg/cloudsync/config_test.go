package cloudsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 60*time.Second, cfg.MaxReconnectDelay)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero heartbeat", func(c *Config) { c.HeartbeatInterval = 0 }},
		{"zero reconnect delay", func(c *Config) { c.ReconnectDelay = 0 }},
		{"max below base", func(c *Config) { c.MaxReconnectDelay = c.ReconnectDelay - time.Second }},
		{"zero connect timeout", func(c *Config) { c.ConnectTimeout = 0 }},
		{"negative auth threshold", func(c *Config) { c.AuthFailureThreshold = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_FluentSetters(t *testing.T) {
	cfg := DefaultConfig().
		WithHeartbeatInterval(10 * time.Second).
		WithReconnectDelays(time.Second, 20*time.Second).
		WithConnectTimeout(5 * time.Second)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 20*time.Second, cfg.MaxReconnectDelay)
	assert.Equal(t, 5*time.Second, cfg.ConnectTimeout)
}

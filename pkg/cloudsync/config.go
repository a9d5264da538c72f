package cloudsync

import (
	"errors"
	"time"
)

// Default configuration values.
const (
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultReconnectDelay       = 5 * time.Second
	DefaultMaxReconnectDelay    = 60 * time.Second
	DefaultConnectTimeout       = 10 * time.Second
	DefaultAuthFailureThreshold = 5
)

// Config holds sync client configuration. It is immutable for the lifetime
// of a client; connection credentials are not part of it — they are
// re-resolved from the credential provider on every connection attempt, so
// a rotated token takes effect on the next reconnect.
type Config struct {
	// HeartbeatInterval is the cadence of outbound heartbeats while
	// connected, counted from the moment the connection is established.
	HeartbeatInterval time.Duration

	// ReconnectDelay is the initial delay before reconnecting after a
	// failed attempt or an unexpected disconnect.
	ReconnectDelay time.Duration

	// MaxReconnectDelay caps the exponential backoff between attempts.
	MaxReconnectDelay time.Duration

	// ConnectTimeout bounds a single dial/handshake attempt.
	ConnectTimeout time.Duration

	// AuthFailureThreshold is the number of consecutive handshake
	// rejections (HTTP 401/403) after which the client escalates to an
	// error log and the OnAuthFailure callback. Retrying continues either
	// way; zero disables escalation.
	AuthFailureThreshold int

	// OnConnect is called after each successful connection.
	OnConnect func(sessionID string)

	// OnDisconnect is called when an established connection is lost.
	// err is nil for a stop requested by the Hub itself.
	OnDisconnect func(err error)

	// OnAuthFailure is called when AuthFailureThreshold consecutive
	// handshake rejections have occurred.
	OnAuthFailure func(consecutive int)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		HeartbeatInterval:    DefaultHeartbeatInterval,
		ReconnectDelay:       DefaultReconnectDelay,
		MaxReconnectDelay:    DefaultMaxReconnectDelay,
		ConnectTimeout:       DefaultConnectTimeout,
		AuthFailureThreshold: DefaultAuthFailureThreshold,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.HeartbeatInterval <= 0 {
		return errors.New("HeartbeatInterval must be positive")
	}
	if c.ReconnectDelay <= 0 {
		return errors.New("ReconnectDelay must be positive")
	}
	if c.MaxReconnectDelay < c.ReconnectDelay {
		return errors.New("MaxReconnectDelay must be >= ReconnectDelay")
	}
	if c.ConnectTimeout <= 0 {
		return errors.New("ConnectTimeout must be positive")
	}
	if c.AuthFailureThreshold < 0 {
		return errors.New("AuthFailureThreshold must not be negative")
	}
	return nil
}

// WithHeartbeatInterval returns the config with the heartbeat interval set.
func (c *Config) WithHeartbeatInterval(d time.Duration) *Config {
	c.HeartbeatInterval = d
	return c
}

// WithReconnectDelays returns the config with the backoff window set.
func (c *Config) WithReconnectDelays(base, max time.Duration) *Config {
	c.ReconnectDelay = base
	c.MaxReconnectDelay = max
	return c
}

// WithConnectTimeout returns the config with the dial timeout set.
func (c *Config) WithConnectTimeout(d time.Duration) *Config {
	c.ConnectTimeout = d
	return c
}

package transport

import (
	"errors"
	"strings"
	"time"
)

var ErrAddressRequired = errors.New("transport: address required")

// BackoffConfig defines delay between initial connect attempts.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines how the feed connection is established and read.
type Config struct {
	Address         string
	ConnectTimeout  time.Duration
	ConnectAttempts int
	// IdleTimeout bounds the wait for the next chunk; zero waits forever.
	IdleTimeout time.Duration
	Backoff     BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		Address:         "127.0.0.1:8081",
		ConnectTimeout:  5 * time.Second,
		ConnectAttempts: 1,
		IdleTimeout:     0,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = def.ConnectAttempts
	}
	if c.IdleTimeout < 0 {
		c.IdleTimeout = 0
	}
	if c.Backoff == (BackoffConfig{}) {
		c.Backoff = def.Backoff
	}
	return c
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return ErrAddressRequired
	}
	return nil
}

package session

import "time"

// Config defines transport/session reliability defaults.
//
// A zero ReadTimeout on the serving side means an idle connection may wait indefinitely
// for its next request; interactive clients sit idle between menu choices.
type Config struct {
	ConnectTimeout   time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	OperationTimeout time.Duration
	MaxAttempts      int
	Backoff          BackoffConfig
}

// DefaultConfig returns client-side defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:   5 * time.Second,
		ReadTimeout:      15 * time.Second,
		WriteTimeout:     15 * time.Second,
		OperationTimeout: 30 * time.Second,
		MaxAttempts:      3,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// ServerConfig returns serving-side defaults: no idle read deadline.
func ServerConfig() Config {
	cfg := DefaultConfig()
	cfg.ReadTimeout = 0
	cfg.OperationTimeout = 0
	return cfg
}

// WithDefaults fills unset fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.Backoff.Multiplier <= 0 {
		c.Backoff.Multiplier = def.Backoff.Multiplier
	}
	return c
}

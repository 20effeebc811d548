package scheduler

import (
	"time"

	"github.com/smallbiznis/ecclesia/internal/config"
)

// Config controls scheduler intervals.
type Config struct {
	ExpiryInterval time.Duration
	RunTimeout     time.Duration
	// LockTTL bounds how long one replica may hold a job lock.
	LockTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		ExpiryInterval: time.Hour,
		RunTimeout:     5 * time.Minute,
		LockTTL:        10 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		ExpiryInterval: cfg.Scheduler.ExpiryInterval,
		RunTimeout:     cfg.Scheduler.RunTimeout,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.ExpiryInterval <= 0 {
		c.ExpiryInterval = defaults.ExpiryInterval
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	if c.LockTTL < c.RunTimeout {
		c.LockTTL = c.RunTimeout
	}
	return c
}

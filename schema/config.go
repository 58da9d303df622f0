package schema

import "time"

// DefaultBufferMaxLines is the default per-session output line cap.
const DefaultBufferMaxLines = 5000

// DefaultDiscoveryTimeout bounds project discovery.
const DefaultDiscoveryTimeout = 30 * time.Second

// DefaultKillGrace is how long a terminated process may linger before SIGKILL.
const DefaultKillGrace = 5 * time.Second

// DefaultDebounce is the file-watch quiet period.
const DefaultDebounce = 300 * time.Millisecond

// DefaultTick is the render loop drain interval.
const DefaultTick = 50 * time.Millisecond

// ServiceConfig defines limits for the session engine.
type ServiceConfig struct {
	BufferMaxLines   int
	DiscoveryTimeout time.Duration
	KillGrace        time.Duration
	Debounce         time.Duration
	Flags            []Flag
	CustomGoals      []CustomGoal
}

// NormalizeServiceConfig applies defaults.
func NormalizeServiceConfig(cfg ServiceConfig) ServiceConfig {
	if cfg.BufferMaxLines <= 0 {
		cfg.BufferMaxLines = DefaultBufferMaxLines
	}
	if cfg.DiscoveryTimeout <= 0 {
		cfg.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = DefaultKillGrace
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return cfg
}

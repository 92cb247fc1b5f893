package client

import (
	"math"
	"math/rand"
)

// BackoffConfig spaces approval retries in blocks.
type BackoffConfig struct {
	InitialBlocks uint64
	MaxBlocks     uint64
	Multiplier    float64
	Jitter        bool
	MaxAttempts   int
}

func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialBlocks: 1,
		MaxBlocks:     64,
		Multiplier:    2.0,
		MaxAttempts:   5,
	}
}

func (c BackoffConfig) withDefaults() BackoffConfig {
	def := DefaultBackoffConfig()
	if c.InitialBlocks == 0 {
		c.InitialBlocks = def.InitialBlocks
	}
	if c.Multiplier < 1.0 {
		c.Multiplier = def.Multiplier
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	return c
}

// NextBackoff returns the wait in blocks before attempt N (1-based).
func NextBackoff(cfg BackoffConfig, attempt int, rng *rand.Rand) uint64 {
	if attempt <= 1 || cfg.InitialBlocks == 0 {
		return cfg.InitialBlocks
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	delay := float64(cfg.InitialBlocks) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxBlocks > 0 && delay > float64(cfg.MaxBlocks) {
		delay = float64(cfg.MaxBlocks)
	}
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay *= f
	}
	if delay < 1 {
		return 1
	}
	return uint64(delay)
}

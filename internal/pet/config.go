package pet

// Config tunes the watchdog. Vital constants are fixed.
type Config struct {
	// CheckStateDelay is the self-ping delay in blocks.
	CheckStateDelay uint32
	// AttentionThreshold is the level below which a vital needs attention.
	AttentionThreshold uint64
}

func DefaultConfig() Config {
	return Config{
		CheckStateDelay:    60,
		AttentionThreshold: 100,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.CheckStateDelay == 0 {
		c.CheckStateDelay = def.CheckStateDelay
	}
	if c.AttentionThreshold == 0 {
		c.AttentionThreshold = def.AttentionThreshold
	}
	return c
}

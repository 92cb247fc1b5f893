package host

import "time"

// Config tunes the simulated host.
type Config struct {
	StartBlock uint64
	// GasPerMessage is charged for every delivery.
	GasPerMessage uint64
	// DefaultGasLimit is attached to init, delayed and reply-call deliveries.
	DefaultGasLimit uint64
	// ReplyTimeout bounds one SendForReply call.
	ReplyTimeout time.Duration

	MinReservation         uint64
	MaxReservation         uint64
	MaxReservationDuration uint32

	// MaxDeliveries bounds the queue drained by one Send or Advance.
	MaxDeliveries int
	// HistoryLimit bounds the in-memory dispatch records.
	HistoryLimit int
}

func DefaultConfig() Config {
	return Config{
		GasPerMessage:          1_000,
		DefaultGasLimit:        1_000_000,
		ReplyTimeout:           2 * time.Second,
		MinReservation:         1_000,
		MaxReservation:         10_000_000,
		MaxReservationDuration: 100_000,
		MaxDeliveries:          10_000,
		HistoryLimit:           1_024,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.GasPerMessage == 0 {
		c.GasPerMessage = def.GasPerMessage
	}
	if c.DefaultGasLimit == 0 {
		c.DefaultGasLimit = def.DefaultGasLimit
	}
	if c.ReplyTimeout <= 0 {
		c.ReplyTimeout = def.ReplyTimeout
	}
	if c.MinReservation == 0 {
		c.MinReservation = def.MinReservation
	}
	if c.MaxReservation == 0 {
		c.MaxReservation = def.MaxReservation
	}
	if c.MaxReservationDuration == 0 {
		c.MaxReservationDuration = def.MaxReservationDuration
	}
	if c.MaxDeliveries <= 0 {
		c.MaxDeliveries = def.MaxDeliveries
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = def.HistoryLimit
	}
	return c
}

package config

import (
	"time"

	"github.com/danmuck/tamactl/internal/actor"
	"github.com/danmuck/tamactl/internal/host"
	"github.com/danmuck/tamactl/internal/pet"
)

// Runtime converts the host section. Zero fields fall back to host defaults.
func (c HostConfig) Runtime() host.Config {
	return host.Config{
		StartBlock:             c.StartBlock,
		GasPerMessage:          c.GasPerMessage,
		DefaultGasLimit:        c.DefaultGasLimit,
		ReplyTimeout:           time.Duration(c.ReplyTimeoutMS) * time.Millisecond,
		MinReservation:         c.MinReservation,
		MaxReservation:         c.MaxReservation,
		MaxReservationDuration: c.MaxReservationDuration,
		MaxDeliveries:          c.MaxDeliveries,
		HistoryLimit:           c.HistoryLimit,
	}
}

func (c PetConfig) Program() pet.Config {
	return pet.Config{
		CheckStateDelay:    c.CheckStateDelay,
		AttentionThreshold: c.AttentionThreshold,
	}
}

func (c PetConfig) ActorID() actor.ID    { return actor.ResolveID(c.ID) }
func (c PetConfig) OwnerID() actor.ID    { return actor.ResolveID(c.Owner) }
func (c TokenConfig) ActorID() actor.ID  { return actor.ResolveID(c.ID) }
func (c TokenConfig) AdminID() actor.ID  { return actor.ResolveID(c.Admin) }
func (c StoreConfig) ActorID() actor.ID  { return actor.ResolveID(c.ID) }
func (c StoreConfig) AdminID() actor.ID  { return actor.ResolveID(c.Admin) }
func (c MintConfig) AccountID() actor.ID { return actor.ResolveID(c.Account) }

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/tamactl/internal/protocol/scale"
	"github.com/pelletier/go-toml/v2"
)

// WorldConfig describes the hosted programs and their bootstrap.
type WorldConfig struct {
	Host  HostConfig  `toml:"host"`
	Pet   PetConfig   `toml:"pet"`
	Token TokenConfig `toml:"token"`
	Store StoreConfig `toml:"store"`
}

type HostConfig struct {
	StartBlock             uint64 `toml:"start_block"`
	GasPerMessage          uint64 `toml:"gas_per_message"`
	DefaultGasLimit        uint64 `toml:"default_gas_limit"`
	ReplyTimeoutMS         int64  `toml:"reply_timeout_ms"`
	MinReservation         uint64 `toml:"min_reservation"`
	MaxReservation         uint64 `toml:"max_reservation"`
	MaxReservationDuration uint32 `toml:"max_reservation_duration"`
	MaxDeliveries          int    `toml:"max_deliveries"`
	HistoryLimit           int    `toml:"history_limit"`
}

// PetConfig ids accept 0x-hex or a label hashed into an id.
type PetConfig struct {
	ID                 string `toml:"id"`
	Name               string `toml:"name"`
	Owner              string `toml:"owner"`
	CheckStateDelay    uint32 `toml:"check_state_delay"`
	AttentionThreshold uint64 `toml:"attention_threshold"`
}

type TokenConfig struct {
	ID    string       `toml:"id"`
	Name  string       `toml:"name"`
	Admin string       `toml:"admin"`
	Mint  []MintConfig `toml:"mint"`
}

type MintConfig struct {
	Account string     `toml:"account"`
	Amount  scale.U128 `toml:"amount"`
}

type StoreConfig struct {
	ID         string            `toml:"id"`
	Admin      string            `toml:"admin"`
	Attributes []AttributeConfig `toml:"attributes"`
}

type AttributeConfig struct {
	ID    uint32     `toml:"id"`
	Price scale.U128 `toml:"price"`
}

func LoadWorldConfig(path string) (WorldConfig, error) {
	var cfg WorldConfig
	if err := loadToml(path, &cfg); err != nil {
		return WorldConfig{}, err
	}
	applyWorldDefaults(&cfg)
	if err := ValidateWorldConfig(cfg); err != nil {
		return WorldConfig{}, err
	}
	return cfg, nil
}

// ParseWorldConfig decodes and validates an in-memory document.
func ParseWorldConfig(data []byte) (WorldConfig, error) {
	var cfg WorldConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return WorldConfig{}, fmt.Errorf("config parse failed: %w", err)
	}
	applyWorldDefaults(&cfg)
	if err := ValidateWorldConfig(cfg); err != nil {
		return WorldConfig{}, err
	}
	return cfg, nil
}

// DefaultWorldConfig is the world used when no file is given.
func DefaultWorldConfig() WorldConfig {
	var cfg WorldConfig
	applyWorldDefaults(&cfg)
	return cfg
}

func applyWorldDefaults(cfg *WorldConfig) {
	if cfg.Pet.ID == "" {
		cfg.Pet.ID = "pet"
	}
	if cfg.Pet.Name == "" {
		cfg.Pet.Name = "Rex"
	}
	if cfg.Pet.Owner == "" {
		cfg.Pet.Owner = "owner"
	}
	if cfg.Token.ID == "" {
		cfg.Token.ID = "ftoken"
	}
	if cfg.Token.Admin == "" {
		cfg.Token.Admin = "admin"
	}
	if cfg.Store.ID == "" {
		cfg.Store.ID = "store"
	}
	if cfg.Store.Admin == "" {
		cfg.Store.Admin = "admin"
	}
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateWorldConfig(cfg WorldConfig) error {
	if err := ValidateHostConfig(cfg.Host); err != nil {
		return fmt.Errorf("host invalid: %w", err)
	}
	if strings.TrimSpace(cfg.Pet.Name) == "" {
		return fmt.Errorf("pet config missing name")
	}
	ids := map[string]string{}
	for section, id := range map[string]string{"pet": cfg.Pet.ID, "token": cfg.Token.ID, "store": cfg.Store.ID} {
		key := strings.TrimSpace(id)
		if key == "" {
			return fmt.Errorf("%s config missing id", section)
		}
		if other, ok := ids[key]; ok {
			return fmt.Errorf("%s and %s share id %q", section, other, key)
		}
		ids[key] = section
	}
	for i, m := range cfg.Token.Mint {
		if strings.TrimSpace(m.Account) == "" {
			return fmt.Errorf("token.mint[%d] missing account", i)
		}
	}
	seen := map[uint32]bool{}
	for i, attr := range cfg.Store.Attributes {
		if seen[attr.ID] {
			return fmt.Errorf("store.attributes[%d] duplicate id %d", i, attr.ID)
		}
		seen[attr.ID] = true
	}
	return nil
}

func ValidateHostConfig(cfg HostConfig) error {
	if cfg.ReplyTimeoutMS < 0 {
		return fmt.Errorf("reply_timeout_ms must not be negative")
	}
	if cfg.DefaultGasLimit != 0 && cfg.GasPerMessage > cfg.DefaultGasLimit {
		return fmt.Errorf("gas_per_message %d exceeds default_gas_limit %d", cfg.GasPerMessage, cfg.DefaultGasLimit)
	}
	if cfg.MaxReservation != 0 && cfg.MinReservation > cfg.MaxReservation {
		return fmt.Errorf("min_reservation %d exceeds max_reservation %d", cfg.MinReservation, cfg.MaxReservation)
	}
	return nil
}

package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// serveSettings configures the HTTP process around a world.
type serveSettings struct {
	ID          string
	Addr        string
	CORSOrigins []string
	Journal     string
	GasLimit    uint64
	AdminToken  string
}

type settingsFile struct {
	ID          string   `toml:"id"`
	Addr        string   `toml:"addr"`
	CORSOrigins []string `toml:"cors_origins"`
	Journal     string   `toml:"journal"`
	GasLimit    uint64   `toml:"gas_limit"`
	AdminToken  string   `toml:"admin_token"`
}

func defaultServeSettings() serveSettings {
	return serveSettings{
		ID:   "petctl.local",
		Addr: "127.0.0.1:7080",
	}
}

func loadServeSettings(path string) (serveSettings, error) {
	cfg := defaultServeSettings()

	var raw settingsFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return serveSettings{}, fmt.Errorf("load serve settings: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return serveSettings{}, fmt.Errorf("load serve settings: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("id") {
		if id := strings.TrimSpace(raw.ID); id != "" {
			cfg.ID = id
		}
	}
	if meta.IsDefined("addr") {
		if addr := strings.TrimSpace(raw.Addr); addr != "" {
			cfg.Addr = addr
		}
	}
	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = normalizeList(raw.CORSOrigins)
	}
	if meta.IsDefined("journal") {
		cfg.Journal = strings.TrimSpace(raw.Journal)
	}
	if meta.IsDefined("gas_limit") {
		cfg.GasLimit = raw.GasLimit
	}
	if meta.IsDefined("admin_token") {
		cfg.AdminToken = strings.TrimSpace(raw.AdminToken)
	}
	return cfg, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/tamactl/internal/testutil/testlog"
)

func TestLoadServeSettingsOverrides(t *testing.T) {
	testlog.Start(t)
	cfg, err := loadServeSettings("ex.settings.toml")
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if cfg.ID != "petctl.local" || cfg.Addr != "127.0.0.1:7080" {
		t.Fatalf("unexpected settings: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected origins: %+v", cfg.CORSOrigins)
	}
	if cfg.Journal != "local/journal.db" || cfg.GasLimit != 0 {
		t.Fatalf("unexpected journal or gas: %+v", cfg)
	}
}

func TestLoadServeSettingsDefaultsAndUnknownKeys(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "s.toml")
	if err := os.WriteFile(path, []byte("gas_limit = 5000\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := loadServeSettings(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := defaultServeSettings()
	if cfg.ID != def.ID || cfg.Addr != def.Addr || cfg.GasLimit != 5000 {
		t.Fatalf("unexpected settings: %+v", cfg)
	}

	if err := os.WriteFile(path, []byte("port = 1\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := loadServeSettings(path); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

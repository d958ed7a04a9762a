package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("save-backend", "sqlite", "")
	if err := flags.Parse([]string{"--save-backend=sqlite"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}

	cfg, err = Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SaveBackend != "sqlite" {
		t.Fatalf("save backend = %q", cfg.SaveBackend)
	}
	if cfg.SaveVersion != "2.0" || cfg.NPCTick != 2*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SyncEnabled() {
		t.Fatalf("sync must be disabled without user id and dsn")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("MERCADO_SAVE_BACKEND", "cloud")
	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestLoadTuningOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	data := []byte(`
pool:
  fee_bps: 25
npc:
  cooldowns:
    casual: 90s
  roster:
    - id: abuela
      name: Abuela
      personality: comprador
      preferred_tokens: [uva]
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tun, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("load tuning: %v", err)
	}
	if tun.Pool.FeeBps != 25 {
		t.Fatalf("fee bps = %d, want 25", tun.Pool.FeeBps)
	}
	if tun.Pool.RatioTolerance != 1e-6 {
		t.Fatalf("ratio tolerance lost its default: %v", tun.Pool.RatioTolerance)
	}
	if tun.NPC.Cooldowns["casual"] != 90*time.Second || tun.NPC.Cooldowns["comprador"] != 20*time.Second {
		t.Fatalf("unexpected cooldowns: %v", tun.NPC.Cooldowns)
	}
	if len(tun.NPC.Roster) != 1 || tun.NPC.Roster[0].PreferredTokens[0] != "uva" {
		t.Fatalf("unexpected roster: %+v", tun.NPC.Roster)
	}
}

func TestLoadTuningValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("pool:\n  fee_bps: 10000\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadTuning(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !cfg.EnableSimulation {
		t.Error("simulation should default to enabled")
	}
	if !cfg.IsTestnet {
		t.Error("testnet should default to enabled")
	}
	if len(cfg.Symbols) != 1 || cfg.Symbols[0] != "ETHUSDT" {
		t.Errorf("Symbols = %v, want [ETHUSDT]", cfg.Symbols)
	}
	if cfg.PrimaryTimeframe != "5m" {
		t.Errorf("PrimaryTimeframe = %q, want 5m", cfg.PrimaryTimeframe)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", cfg.PollInterval)
	}
	if cfg.MaxConsecutiveLosses != 3 {
		t.Errorf("MaxConsecutiveLosses = %d, want 3", cfg.MaxConsecutiveLosses)
	}
}

func TestLoadConfig_SymbolList(t *testing.T) {
	os.Clearenv()
	os.Setenv("SYMBOLS", "BTCUSDT, ETHUSDT ,SOLUSDT")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	want := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	if len(cfg.Symbols) != len(want) {
		t.Fatalf("Symbols = %v, want %v", cfg.Symbols, want)
	}
	for i := range want {
		if cfg.Symbols[i] != want[i] {
			t.Errorf("Symbols[%d] = %q, want %q", i, cfg.Symbols[i], want[i])
		}
	}
}

func TestLoadConfig_LiveTradingRequiresKeys(t *testing.T) {
	os.Clearenv()
	os.Setenv("ENABLE_SIMULATION", "false")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected validation failure without API keys when simulation is off")
	}
}

func TestLoadConfig_PrimaryTimeframeMustBeListed(t *testing.T) {
	os.Clearenv()
	os.Setenv("TIMEFRAMES", "15m,1h")
	os.Setenv("PRIMARY_TIMEFRAME", "5m")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected validation failure when primary timeframe is not fetched")
	}
}

func TestLoadParams_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yaml")
	content := []byte(`
fakeout:
  swing_period: 5
  min_strength: 0.002
confluence:
  weights:
    5m: 1.0
    15m: 2.5
  min_score: 0.4
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	params, err := LoadParams(path)
	if err != nil {
		t.Fatalf("LoadParams failed: %v", err)
	}
	if params.Fakeout.SwingPeriod != 5 {
		t.Errorf("SwingPeriod = %d, want 5", params.Fakeout.SwingPeriod)
	}
	if params.Confluence.Weights["15m"] != 2.5 {
		t.Errorf("weight 15m = %v, want 2.5", params.Confluence.Weights["15m"])
	}
	if params.Confluence.MinScore != 0.4 {
		t.Errorf("MinScore = %v, want 0.4", params.Confluence.MinScore)
	}
}

func TestLoadParams_EmptyPath(t *testing.T) {
	params, err := LoadParams("")
	if err != nil {
		t.Fatalf("LoadParams with empty path failed: %v", err)
	}
	if params == nil {
		t.Fatal("expected empty params, got nil")
	}
}

func TestStore_Reload(t *testing.T) {
	first := &Config{PrimaryTimeframe: "5m"}
	store := NewStore(first, nil)

	if store.Current() != first {
		t.Fatal("Current should return the initial config")
	}

	second := &Config{PrimaryTimeframe: "15m"}
	store.Reload(second)
	if store.Current().PrimaryTimeframe != "15m" {
		t.Error("Reload should swap the active config")
	}
}

package hdmi

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analyzer.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
segmenter:
  enableSignal: di_en
  maxSamples: 64
vsyncSignal: vs_out
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Segmenter.EnableSignal != "di_en" {
		t.Fatalf("enable = %q, want di_en", cfg.Segmenter.EnableSignal)
	}
	if cfg.Segmenter.MaxSamples != 64 {
		t.Fatalf("max samples = %d, want 64", cfg.Segmenter.MaxSamples)
	}
	if cfg.VSyncSignal != "vs_out" {
		t.Fatalf("vsync = %q, want vs_out", cfg.VSyncSignal)
	}
	// Omitted fields keep their defaults.
	if cfg.Segmenter.PreambleSignal != "preamble_active" {
		t.Fatalf("preamble = %q, want default", cfg.Segmenter.PreambleSignal)
	}
	if len(cfg.Segmenter.ChannelBuses) != 3 {
		t.Fatalf("channel buses = %v, want defaults", cfg.Segmenter.ChannelBuses)
	}
	if cfg.VerticalBus != "vertical_counter" {
		t.Fatalf("vertical bus = %q, want default", cfg.VerticalBus)
	}
}

func TestLoadConfigUnknownField(t *testing.T) {
	path := writeConfig(t, "notAField: true\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Fatalf("expected default sample rate, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Segmenter.TargetIntervalMS != 5000 {
		t.Fatalf("expected default target interval, got %d", cfg.Segmenter.TargetIntervalMS)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glot.yaml")
	data := []byte("segmenter:\n  target_interval_ms: 4000\n  overlap_ms: 500\ntranslate:\n  model: gpt-4o\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Segmenter.TargetIntervalMS != 4000 {
		t.Fatalf("expected file target interval, got %d", cfg.Segmenter.TargetIntervalMS)
	}
	if cfg.Segmenter.Overlap() != 500*time.Millisecond {
		t.Fatalf("expected overlap 500ms, got %v", cfg.Segmenter.Overlap())
	}
	if cfg.Translate.Model != "gpt-4o" {
		t.Fatalf("expected model override, got %q", cfg.Translate.Model)
	}
	// unrelated fields keep defaults
	if cfg.Audio.QueueCapacity != 64 {
		t.Fatalf("expected default queue capacity, got %d", cfg.Audio.QueueCapacity)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GLOT_SEGMENTER_TARGET_INTERVAL_MS", "6000")
	t.Setenv("GLOT_SEGMENTER_ENERGY_MULTIPLIER", "2.5")
	t.Setenv("GLOT_STT_SESSIONS", "4")
	t.Setenv("GLOT_TRANSLATE_PARTIALS", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Segmenter.TargetIntervalMS != 6000 {
		t.Fatalf("expected env target interval, got %d", cfg.Segmenter.TargetIntervalMS)
	}
	if cfg.Segmenter.EnergyMultiplier != 2.5 {
		t.Fatalf("expected env multiplier, got %f", cfg.Segmenter.EnergyMultiplier)
	}
	if cfg.STT.Sessions != 4 {
		t.Fatalf("expected env sessions, got %d", cfg.STT.Sessions)
	}
	if cfg.Translate.TranslatePartials {
		t.Fatal("expected partials disabled via env")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"zero sample rate":    func(c *Config) { c.Audio.SampleRate = 0 },
		"stereo":              func(c *Config) { c.Audio.Channels = 2 },
		"high mark too large": func(c *Config) { c.Audio.QueueHighMark = c.Audio.QueueCapacity + 1 },
		"interval below min":  func(c *Config) { c.Segmenter.TargetIntervalMS = c.Segmenter.MinSegmentMS - 1 },
		"overlap >= interval": func(c *Config) { c.Segmenter.OverlapMS = c.Segmenter.TargetIntervalMS },
		"alpha out of range":  func(c *Config) { c.Segmenter.EnergyAlpha = 1.5 },
		"no sessions":         func(c *Config) { c.STT.Sessions = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			if err := validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestOverflowCeiling(t *testing.T) {
	cfg := Default()
	want := cfg.Segmenter.TargetInterval() * 3 / 2
	if got := cfg.Segmenter.OverflowCeiling(); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

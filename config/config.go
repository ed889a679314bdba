package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type AudioConfig struct {
	SampleRate    int `yaml:"sample_rate"`
	Channels      int `yaml:"channels"`
	ChunkMS       int `yaml:"chunk_ms"`
	QueueCapacity int `yaml:"queue_capacity"`
	QueueHighMark int `yaml:"queue_high_water_mark"`
}

type SegmenterConfig struct {
	TickMS           int `yaml:"tick_ms"`
	TargetIntervalMS int `yaml:"target_interval_ms"`
	MinSegmentMS     int `yaml:"min_segment_ms"`
	SilenceAfterMS   int `yaml:"silence_after_ms"`
	OverlapMS        int `yaml:"overlap_ms"`

	EnergyFloor      float64 `yaml:"energy_floor"`
	EnergyMultiplier float64 `yaml:"energy_multiplier"`
	EnergyAlpha      float64 `yaml:"energy_alpha"`
}

type TranscribeConfig struct {
	Provider         string `yaml:"provider"` // deepgram, groq, fake
	Model            string `yaml:"model"`
	Language         string `yaml:"language"`
	Sessions         int    `yaml:"sessions"`
	ConnectTimeoutMS int    `yaml:"connect_timeout_ms"`
	Format           string `yaml:"format"` // batch providers: flac
}

type TranslateConfig struct {
	Provider          string `yaml:"provider"` // openai, fake
	Model             string `yaml:"model"`
	RequestTimeoutMS  int    `yaml:"request_timeout_ms"`
	CacheTTLSeconds   int    `yaml:"cache_ttl_s"`
	CacheSize         int    `yaml:"cache_size"`
	PartialIntervalMS int    `yaml:"partial_interval_ms"`
	TranslatePartials bool   `yaml:"translate_partials"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

type Config struct {
	Audio     AudioConfig      `yaml:"audio"`
	Segmenter SegmenterConfig  `yaml:"segmenter"`
	STT       TranscribeConfig `yaml:"stt"`
	Translate TranslateConfig  `yaml:"translate"`
	Log       LogConfig        `yaml:"log"`
}

func Default() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate:    16000,
			Channels:      1,
			ChunkMS:       250,
			QueueCapacity: 64,
			QueueHighMark: 48,
		},
		Segmenter: SegmenterConfig{
			TickMS:           100,
			TargetIntervalMS: 5000,
			MinSegmentMS:     1200,
			SilenceAfterMS:   900,
			OverlapMS:        800,
			EnergyFloor:      0.010,
			EnergyMultiplier: 1.8,
			EnergyAlpha:      0.05,
		},
		STT: TranscribeConfig{
			Provider:         "",
			Model:            "",
			Language:         "en",
			Sessions:         2,
			ConnectTimeoutMS: 5000,
			Format:           "flac",
		},
		Translate: TranslateConfig{
			Provider:          "openai",
			Model:             "gpt-4o-mini",
			RequestTimeoutMS:  10000,
			CacheTTLSeconds:   30,
			CacheSize:         256,
			PartialIntervalMS: 800,
			TranslatePartials: true,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "",
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideInt(&cfg.Audio.SampleRate, "GLOT_AUDIO_SAMPLE_RATE")
	overrideInt(&cfg.Audio.Channels, "GLOT_AUDIO_CHANNELS")
	overrideInt(&cfg.Audio.ChunkMS, "GLOT_AUDIO_CHUNK_MS")
	overrideInt(&cfg.Audio.QueueCapacity, "GLOT_AUDIO_QUEUE_CAPACITY")
	overrideInt(&cfg.Audio.QueueHighMark, "GLOT_AUDIO_QUEUE_HIGH_WATER_MARK")
	overrideInt(&cfg.Segmenter.TickMS, "GLOT_SEGMENTER_TICK_MS")
	overrideInt(&cfg.Segmenter.TargetIntervalMS, "GLOT_SEGMENTER_TARGET_INTERVAL_MS")
	overrideInt(&cfg.Segmenter.MinSegmentMS, "GLOT_SEGMENTER_MIN_SEGMENT_MS")
	overrideInt(&cfg.Segmenter.SilenceAfterMS, "GLOT_SEGMENTER_SILENCE_AFTER_MS")
	overrideInt(&cfg.Segmenter.OverlapMS, "GLOT_SEGMENTER_OVERLAP_MS")
	overrideFloat(&cfg.Segmenter.EnergyFloor, "GLOT_SEGMENTER_ENERGY_FLOOR")
	overrideFloat(&cfg.Segmenter.EnergyMultiplier, "GLOT_SEGMENTER_ENERGY_MULTIPLIER")
	overrideFloat(&cfg.Segmenter.EnergyAlpha, "GLOT_SEGMENTER_ENERGY_ALPHA")
	overrideString(&cfg.STT.Provider, "GLOT_STT_PROVIDER")
	overrideString(&cfg.STT.Model, "GLOT_STT_MODEL")
	overrideString(&cfg.STT.Language, "GLOT_STT_LANGUAGE")
	overrideInt(&cfg.STT.Sessions, "GLOT_STT_SESSIONS")
	overrideInt(&cfg.STT.ConnectTimeoutMS, "GLOT_STT_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.STT.Format, "GLOT_STT_FORMAT")
	overrideString(&cfg.Translate.Provider, "GLOT_TRANSLATE_PROVIDER")
	overrideString(&cfg.Translate.Model, "GLOT_TRANSLATE_MODEL")
	overrideInt(&cfg.Translate.RequestTimeoutMS, "GLOT_TRANSLATE_REQUEST_TIMEOUT_MS")
	overrideInt(&cfg.Translate.CacheTTLSeconds, "GLOT_TRANSLATE_CACHE_TTL_S")
	overrideInt(&cfg.Translate.CacheSize, "GLOT_TRANSLATE_CACHE_SIZE")
	overrideInt(&cfg.Translate.PartialIntervalMS, "GLOT_TRANSLATE_PARTIAL_INTERVAL_MS")
	overrideBool(&cfg.Translate.TranslatePartials, "GLOT_TRANSLATE_PARTIALS")
	overrideString(&cfg.Log.Level, "GLOT_LOG_LEVEL")
	overrideString(&cfg.Log.Dir, "GLOT_LOG_DIR")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if cfg.Audio.Channels != 1 {
		return errors.New("audio.channels must be 1 (single speaker)")
	}
	if cfg.Audio.ChunkMS <= 0 {
		return errors.New("audio.chunk_ms must be positive")
	}
	if cfg.Audio.QueueCapacity <= 0 {
		return errors.New("audio.queue_capacity must be positive")
	}
	if cfg.Audio.QueueHighMark <= 0 || cfg.Audio.QueueHighMark > cfg.Audio.QueueCapacity {
		return errors.New("audio.queue_high_water_mark must be in (0, queue_capacity]")
	}
	if cfg.Segmenter.TickMS <= 0 {
		return errors.New("segmenter.tick_ms must be positive")
	}
	if cfg.Segmenter.TargetIntervalMS < cfg.Segmenter.MinSegmentMS {
		return errors.New("segmenter.target_interval_ms must be >= min_segment_ms")
	}
	if cfg.Segmenter.OverlapMS < 0 || cfg.Segmenter.OverlapMS >= cfg.Segmenter.TargetIntervalMS {
		return errors.New("segmenter.overlap_ms must be in [0, target_interval_ms)")
	}
	if cfg.Segmenter.EnergyAlpha <= 0 || cfg.Segmenter.EnergyAlpha > 1 {
		return errors.New("segmenter.energy_alpha must be in (0, 1]")
	}
	if cfg.STT.Sessions <= 0 {
		return errors.New("stt.sessions must be positive")
	}
	if cfg.Translate.CacheSize <= 0 {
		return errors.New("translate.cache_size must be positive")
	}
	if cfg.Translate.PartialIntervalMS <= 0 {
		return errors.New("translate.partial_interval_ms must be positive")
	}
	return nil
}

// Duration accessors keep the millisecond config fields in one place.

func (c AudioConfig) ChunkDuration() time.Duration {
	return time.Duration(c.ChunkMS) * time.Millisecond
}

func (c SegmenterConfig) Tick() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

func (c SegmenterConfig) TargetInterval() time.Duration {
	return time.Duration(c.TargetIntervalMS) * time.Millisecond
}

func (c SegmenterConfig) MinSegment() time.Duration {
	return time.Duration(c.MinSegmentMS) * time.Millisecond
}

func (c SegmenterConfig) SilenceAfter() time.Duration {
	return time.Duration(c.SilenceAfterMS) * time.Millisecond
}

func (c SegmenterConfig) Overlap() time.Duration {
	return time.Duration(c.OverlapMS) * time.Millisecond
}

// OverflowCeiling is the hard duration cap for a single segment: 1.5x the
// rolling interval, the safety net when the rolling check itself is delayed.
func (c SegmenterConfig) OverflowCeiling() time.Duration {
	return c.TargetInterval() * 3 / 2
}

func (c TranscribeConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutMS) * time.Millisecond
}

func (c TranslateConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

func (c TranslateConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c TranslateConfig) PartialInterval() time.Duration {
	return time.Duration(c.PartialIntervalMS) * time.Millisecond
}

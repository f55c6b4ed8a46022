// Package config resolves an EngineConfig from defaults, an optional
// YAML file, and (via cmd/sgenginectl) CLI flags and environment
// variables.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tidewave-audio/sgengine/chute"
)

// LatencyHint picks a default sample rate trade-off (low / default /
// high) when SampleRate is left unset.
type LatencyHint int

const (
	LatencyDefault LatencyHint = iota
	LatencyLow
	LatencyHigh
)

// EngineConfig holds every knob the engine driver (package sgengine)
// needs at construction. Zero values are filled in by Resolve.
type EngineConfig struct {
	SampleRate int         `yaml:"sample_rate"`
	LatencyHint LatencyHint `yaml:"-"`

	// ChuteCapacity is the garbage chute's channel capacity.
	ChuteCapacity int `yaml:"chute_capacity"`
	// DisposerGoroutines is how many goroutines drain the chute.
	DisposerGoroutines int `yaml:"disposer_goroutines"`
	// EditQueueCapacity bounds the SPSC edit-batch queue between the
	// control and audio threads.
	EditQueueCapacity int `yaml:"edit_queue_capacity"`
	// ArgumentStackDepth pre-sizes rt.ArgumentStack so pushing an
	// argument while descending into a processor never allocates on the
	// audio thread.
	ArgumentStackDepth int `yaml:"argument_stack_depth"`

	// LogLevel is one of charmbracelet/log's level names ("debug",
	// "info", "warn", "error"); empty defaults to "info".
	LogLevel string `yaml:"log_level"`
	// SentryDSN, if set, makes `sgenginectl serve` initialize Sentry and
	// use sgengine.SentryErrorHandler instead of the logging handler.
	// NewEngine itself does not read this field.
	SentryDSN string `yaml:"sentry_dsn"`

	// MetricsNamespace prefixes the Prometheus collectors that
	// Engine.RegisterMetrics registers.
	MetricsNamespace string `yaml:"metrics_namespace"`
}

// Resolve fills unset fields of cfg with defaults: explicit fields win,
// LatencyHint only applies when the field it would default is zero.
func Resolve(cfg EngineConfig) EngineConfig {
	if cfg.SampleRate <= 0 {
		switch cfg.LatencyHint {
		case LatencyLow:
			cfg.SampleRate = 48000
		case LatencyHigh:
			cfg.SampleRate = 44100
		default:
			cfg.SampleRate = 48000
		}
	}
	if cfg.ChuteCapacity < chute.MinCapacity {
		cfg.ChuteCapacity = chute.MinCapacity
	}
	if cfg.DisposerGoroutines <= 0 {
		cfg.DisposerGoroutines = 1
	}
	if cfg.EditQueueCapacity <= 0 {
		cfg.EditQueueCapacity = 8
	}
	if cfg.ArgumentStackDepth <= 0 {
		cfg.ArgumentStackDepth = 16
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.MetricsNamespace == "" {
		cfg.MetricsNamespace = "sgengine"
	}
	return cfg
}

// LoadFile reads an EngineConfig from a YAML file and resolves it.
// Missing optional fields take Resolve's defaults; a missing file or
// malformed YAML is returned as an error rather than silently defaulted,
// since a control-thread call site that named a config file expects it
// to exist.
func LoadFile(path string) (EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return Resolve(cfg), nil
}

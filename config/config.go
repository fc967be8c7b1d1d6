package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/poiesic/logsift/classify"
	"github.com/poiesic/logsift/ingestion"
	"github.com/poiesic/logsift/stream"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a logsift process.
// Zero values mean "use the built-in default".
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Stream     StreamConfig     `yaml:"stream"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Storage    StorageConfig    `yaml:"storage"`
	HTTP       HTTPConfig       `yaml:"http"`
}

// EngineConfig tunes the ingestion engine.
type EngineConfig struct {
	MaxConcurrent   int           `yaml:"max_concurrent"`
	IdleInterval    time.Duration `yaml:"idle_interval"`
	MetricsInterval time.Duration `yaml:"metrics_interval"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	Retention       time.Duration `yaml:"retention"`
	MaxMemoryMB     int           `yaml:"max_memory_mb"`

	// StarvationThreshold is a pointer because 0 (strict priority) is meaningful.
	StarvationThreshold *int `yaml:"starvation_threshold"`

	Batch BatchConfig `yaml:"batch"`
	Retry RetryConfig `yaml:"retry"`
}

// BatchConfig tunes batch-file processing.
type BatchConfig struct {
	ChunkSize  int `yaml:"chunk_size"`
	FlushLines int `yaml:"flush_lines"`
}

// RetryConfig tunes per-line classifier retries.
type RetryConfig struct {
	Attempts  int           `yaml:"attempts"`
	BaseDelay time.Duration `yaml:"base_delay"`
}

// StreamConfig holds stream buffer flush thresholds.
type StreamConfig struct {
	MaxBytes      int           `yaml:"max_bytes"`
	MaxLines      int           `yaml:"max_lines"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// ClassifierConfig selects the OpenAI-compatible classification service.
type ClassifierConfig struct {
	Host    string `yaml:"host"`
	Model   string `yaml:"model"`
	Token   string `yaml:"token"`
	MaxTags int    `yaml:"max_tags"`
}

// StorageConfig selects where classified results are kept.
type StorageConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// HTTPConfig configures the HTTP intake server.
type HTTPConfig struct {
	Addr           string `yaml:"addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// Load reads a YAML config file from the given path and returns the parsed Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate checks that all config values are valid.
func (c *Config) validate() error {
	e := c.Engine
	var errs []error
	if e.MaxConcurrent < 0 {
		errs = append(errs, fmt.Errorf("engine.max_concurrent must not be negative, got %d", e.MaxConcurrent))
	}
	for name, d := range map[string]time.Duration{
		"engine.idle_interval":    e.IdleInterval,
		"engine.metrics_interval": e.MetricsInterval,
		"engine.cleanup_interval": e.CleanupInterval,
		"engine.retention":        e.Retention,
		"engine.retry.base_delay": e.Retry.BaseDelay,
		"stream.flush_interval":   c.Stream.FlushInterval,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", name, d))
		}
	}
	if e.StarvationThreshold != nil && *e.StarvationThreshold < 0 {
		errs = append(errs, fmt.Errorf("engine.starvation_threshold must not be negative, got %d", *e.StarvationThreshold))
	}
	if e.Batch.ChunkSize < 0 || e.Batch.FlushLines < 0 || e.Retry.Attempts < 0 {
		errs = append(errs, errors.New("engine.batch and engine.retry values must not be negative"))
	}
	if c.Stream.MaxBytes < 0 || c.Stream.MaxLines < 0 {
		errs = append(errs, errors.New("stream thresholds must not be negative"))
	}
	if c.Classifier.MaxTags < 0 {
		errs = append(errs, fmt.Errorf("classifier.max_tags must not be negative, got %d", c.Classifier.MaxTags))
	}
	if c.Storage.Path != "" && c.Storage.InMemory {
		errs = append(errs, errors.New("storage.path and storage.in_memory are mutually exclusive"))
	}
	return errors.Join(errs...)
}

// EngineOptions converts the engine and stream sections to engine options.
// Only values that are set produce an option.
func (c *Config) EngineOptions() []ingestion.Option {
	e := c.Engine
	var opts []ingestion.Option
	if e.MaxConcurrent > 0 {
		opts = append(opts, ingestion.WithMaxConcurrent(e.MaxConcurrent))
	}
	if e.IdleInterval > 0 {
		opts = append(opts, ingestion.WithIdleInterval(e.IdleInterval))
	}
	if e.MetricsInterval > 0 {
		opts = append(opts, ingestion.WithMetricsInterval(e.MetricsInterval))
	}
	if e.CleanupInterval > 0 {
		opts = append(opts, ingestion.WithCleanupInterval(e.CleanupInterval))
	}
	if e.Retention > 0 {
		opts = append(opts, ingestion.WithRetention(e.Retention))
	}
	if e.MaxMemoryMB > 0 {
		opts = append(opts, ingestion.WithMaxMemoryMB(e.MaxMemoryMB))
	}
	if e.StarvationThreshold != nil {
		opts = append(opts, ingestion.WithStarvationThreshold(*e.StarvationThreshold))
	}
	if e.Batch.ChunkSize > 0 {
		opts = append(opts, ingestion.WithBatchChunkSize(e.Batch.ChunkSize))
	}
	if e.Batch.FlushLines > 0 {
		opts = append(opts, ingestion.WithBatchFlushLines(e.Batch.FlushLines))
	}
	if e.Retry.Attempts > 0 {
		delay := e.Retry.BaseDelay
		if delay == 0 {
			delay = 100 * time.Millisecond
		}
		opts = append(opts, ingestion.WithClassifyRetry(e.Retry.Attempts, delay))
	}
	if s := c.Stream; s != (StreamConfig{}) {
		sc := stream.DefaultConfig()
		if s.MaxBytes > 0 {
			sc.MaxBytes = s.MaxBytes
		}
		if s.MaxLines > 0 {
			sc.MaxLines = s.MaxLines
		}
		if s.FlushInterval > 0 {
			sc.FlushInterval = s.FlushInterval
		}
		opts = append(opts, ingestion.WithStreamConfig(sc))
	}
	return opts
}

// ClassifierOptions converts the classifier section to classify config options.
func (c *Config) ClassifierOptions() []classify.ConfigOption {
	var opts []classify.ConfigOption
	if c.Classifier.Host != "" {
		opts = append(opts, classify.WithHost(c.Classifier.Host))
	}
	if c.Classifier.Model != "" {
		opts = append(opts, classify.WithModel(c.Classifier.Model))
	}
	if c.Classifier.Token != "" {
		opts = append(opts, classify.WithToken(c.Classifier.Token))
	}
	if c.Classifier.MaxTags > 0 {
		opts = append(opts, classify.WithMaxTags(c.Classifier.MaxTags))
	}
	return opts
}

// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/viper"

	"github.com/otus-labs/logwatch-agent/internal/log"
)

// Config is the top-level, fully-resolved configuration for one agent run:
// the watch target plus every tunable named in the CLI surface, plus the
// ambient Log/Metrics trees loaded from an optional config file.
type Config struct {
	WatchDir           string        `mapstructure:"watch_dir"`
	Workers            int           `mapstructure:"workers"`
	QueueCapacity      int           `mapstructure:"queue_capacity"`
	ReportInterval     time.Duration `mapstructure:"report_interval"`
	TopK               int           `mapstructure:"topk"`
	ExtensionAllowlist []string      `mapstructure:"extension_allowlist"`
	ReadChunkBytes     int           `mapstructure:"read_chunk_bytes"`
	SwapAckTimeout     time.Duration `mapstructure:"swap_ack_timeout"`
	WorkerJoinTimeout  time.Duration `mapstructure:"worker_join_timeout"`

	Log     log.LoggerConfig `mapstructure:"log"`
	Metrics MetricsConfig    `mapstructure:"metrics"`
}

// MetricsConfig mirrors the teacher's capture-agent MetricsConfig shape.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// Load reads an optional YAML config file for Log/Metrics/tuning defaults,
// then lets the caller's overrides (CLI flags, the positional watch path)
// win over it. path may be empty, in which case only defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("queue_capacity", 10000)
	v.SetDefault("report_interval", 2*time.Second)
	v.SetDefault("topk", 10)
	v.SetDefault("extension_allowlist", []string{".log"})
	v.SetDefault("read_chunk_bytes", 64*1024)
	v.SetDefault("swap_ack_timeout", 200*time.Millisecond)
	v.SetDefault("worker_join_timeout", 2*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pattern", "%time [%level] %field%msg")
	v.SetDefault("log.time", time.RFC3339)
	v.SetDefault("log.file.enabled", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9091")
	v.SetDefault("metrics.path", "/metrics")
}

// ApplyOverrides applies the CLI surface's values over whatever Load
// produced: the positional watch path always wins, and a flag value only
// overrides the loaded config when the caller actually set it (non-zero).
func (cfg *Config) ApplyOverrides(watchDir string, workers, queueCapacity, topK int, reportInterval time.Duration) {
	cfg.WatchDir = watchDir
	if workers > 0 {
		cfg.Workers = workers
	}
	if queueCapacity > 0 {
		cfg.QueueCapacity = queueCapacity
	}
	if topK > 0 {
		cfg.TopK = topK
	}
	if reportInterval > 0 {
		cfg.ReportInterval = reportInterval
	}
}

// Validate checks the resolved configuration against the CLI surface's
// contract: the watch path must exist and be a directory, workers,
// queue_capacity and topk must each be at least 1, and report_interval must
// be positive. read_chunk_bytes is not checked here.
func (cfg *Config) Validate() error {
	info, err := os.Stat(cfg.WatchDir)
	if err != nil {
		return fmt.Errorf("watch_dir %q: %w", cfg.WatchDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch_dir %q is not a directory", cfg.WatchDir)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", cfg.Workers)
	}
	if cfg.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be >= 1, got %d", cfg.QueueCapacity)
	}
	if cfg.TopK < 1 {
		return fmt.Errorf("topk must be >= 1, got %d", cfg.TopK)
	}
	if cfg.ReportInterval < 1 {
		return fmt.Errorf("report_interval must be >= 1ns, got %s", cfg.ReportInterval)
	}
	return nil
}

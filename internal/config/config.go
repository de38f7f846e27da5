package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Pomona  PomonaConfig  `mapstructure:"pomona"`
	Storage StorageConfig `mapstructure:"storage"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

// PomonaConfig holds the collection website and crawl tuning
type PomonaConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	SearchPath    string `mapstructure:"search_path"`    // fmt template taking the start offset
	CatalogPrefix string `mapstructure:"catalog_prefix"` // href prefix of catalog entry links
	PageStride    int    `mapstructure:"page_stride"`
	PageLimit     int    `mapstructure:"page_limit"` // exclusive upper bound for start offsets

	MaxWorkers int `mapstructure:"max_workers"`
	BatchSize  int `mapstructure:"batch_size"`
	BatchDelay int `mapstructure:"batch_delay"`

	Timeout              int      `mapstructure:"timeout"`
	MaxRetries           int      `mapstructure:"max_retries"`
	RetryWait            int      `mapstructure:"retry_wait"`
	RetryMaxWait         int      `mapstructure:"retry_max_wait"`
	MaxRequestsPerSecond int      `mapstructure:"max_requests_per_second"`
	Proxies              []string `mapstructure:"proxies"`
}

// StorageConfig holds where images are written
type StorageConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	Extension string `mapstructure:"extension"`
}

// MetricsConfig holds the optional Prometheus endpoint
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func (c PomonaConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c PomonaConfig) BatchDelayDuration() time.Duration {
	return time.Duration(c.BatchDelay) * time.Second
}

// Load loads configuration from an optional YAML file with environment variable overrides
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	switch {
	case c.Pomona.BaseURL == "":
		return fmt.Errorf("pomona.base_url must be set")
	case !strings.Contains(c.Pomona.SearchPath, "%d"):
		return fmt.Errorf("pomona.search_path must contain a %%d placeholder for the start offset")
	case c.Pomona.CatalogPrefix == "":
		return fmt.Errorf("pomona.catalog_prefix must be set")
	case c.Pomona.PageStride <= 0:
		return fmt.Errorf("pomona.page_stride must be positive, got %d", c.Pomona.PageStride)
	case c.Pomona.PageLimit < 0:
		return fmt.Errorf("pomona.page_limit must not be negative, got %d", c.Pomona.PageLimit)
	case c.Pomona.MaxWorkers <= 0:
		return fmt.Errorf("pomona.max_workers must be positive, got %d", c.Pomona.MaxWorkers)
	case c.Pomona.BatchSize <= 0:
		return fmt.Errorf("pomona.batch_size must be positive, got %d", c.Pomona.BatchSize)
	case c.Pomona.MaxRetries < 0:
		return fmt.Errorf("pomona.max_retries must not be negative, got %d", c.Pomona.MaxRetries)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pomona.base_url", "https://usdawatercolors.nal.usda.gov")
	v.SetDefault("pomona.search_path", "/pom/search.xhtml?start=%d&searchText=&searchField=&sortField=")
	v.SetDefault("pomona.catalog_prefix", "/pom/catalog.xhtml?id=")
	v.SetDefault("pomona.page_stride", 20)
	v.SetDefault("pomona.page_limit", 7600)
	v.SetDefault("pomona.max_workers", 50)
	v.SetDefault("pomona.batch_size", 100)
	v.SetDefault("pomona.batch_delay", 0)
	v.SetDefault("pomona.timeout", 30)
	v.SetDefault("pomona.max_retries", 2)
	v.SetDefault("pomona.retry_wait", 1)
	v.SetDefault("pomona.retry_max_wait", 10)
	v.SetDefault("pomona.max_requests_per_second", 0)
	v.SetDefault("pomona.proxies", []string{})

	v.SetDefault("storage.output_dir", ".")
	v.SetDefault("storage.extension", ".jpg")

	v.SetDefault("metrics.listen_addr", "")

	v.SetDefault("log.level", "info")
}

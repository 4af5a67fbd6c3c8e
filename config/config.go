package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DataDir          string   `yaml:"data_dir"`
	OutputPath       string   `yaml:"output_path"`
	TopK             int      `yaml:"top_k"`
	SiteTitle        string   `yaml:"site_title"`
	SiteRepo         string   `yaml:"site_repo"`
	Badges           []string `yaml:"badges"`
	DownloadsSource  string   `yaml:"downloads_source"`
	DownloadsBaseURL string   `yaml:"downloads_base_url"`
	WarehouseDriver  string   `yaml:"warehouse_driver"`
	WarehouseDSN     string   `yaml:"warehouse_dsn"`
	FetchTimeoutSecs int      `yaml:"fetch_timeout_secs"`
	FetchRetries     int      `yaml:"fetch_retries"`
	ScheduleTime     string   `yaml:"schedule_time"`
	Timezone         string   `yaml:"timezone"`
	LogLevel         string   `yaml:"log_level"`
}

// scheduleTimeRegex validates HH:MM format with proper ranges.
var scheduleTimeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no config file exists.
// Environment overrides still apply.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)
	return cfg
}

// GetConfigPath returns the config file path from environment or default.
func GetConfigPath() string {
	if path := os.Getenv("CATALOG_CONFIG"); path != "" {
		return path
	}
	return "./config.yaml"
}

func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = "./README.md"
	}
	if cfg.TopK == 0 {
		cfg.TopK = 20
	}
	if cfg.SiteTitle == "" {
		cfg.SiteTitle = "Awesome colab notebooks collection for ML experiments"
	}
	if cfg.SiteRepo == "" {
		cfg.SiteRepo = "amrzv/awesome-colab-notebooks"
	}
	if len(cfg.Badges) == 0 {
		cfg.Badges = []string{
			"colab", "yt", "git", "wiki", "kaggle", "arxiv", "tf", "pt", "medium",
			"reddit", "neurips", "pwc", "hf", "docs", "slack", "twitter",
			"deepmind", "discord", "docker",
		}
	}
	if cfg.DownloadsSource == "" {
		cfg.DownloadsSource = "pypistats"
	}
	if cfg.DownloadsBaseURL == "" {
		cfg.DownloadsBaseURL = "https://pypistats.org"
	}
	if cfg.WarehouseDriver == "" {
		cfg.WarehouseDriver = "sqlite"
	}
	if cfg.FetchTimeoutSecs == 0 {
		cfg.FetchTimeoutSecs = 10
	}
	if cfg.FetchRetries == 0 {
		cfg.FetchRetries = 3
	}
	if cfg.ScheduleTime == "" {
		cfg.ScheduleTime = "06:00"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func applyEnvironmentOverrides(cfg *Config) {
	if dataDir := os.Getenv("CATALOG_DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if output := os.Getenv("CATALOG_OUTPUT"); output != "" {
		cfg.OutputPath = output
	}
}

func validate(cfg *Config) error {
	if cfg.TopK < 0 {
		return fmt.Errorf("top_k must not be negative, got %d", cfg.TopK)
	}
	if !strings.Contains(cfg.SiteRepo, "/") {
		return fmt.Errorf("site_repo must be in owner/name format, got %q", cfg.SiteRepo)
	}
	switch cfg.DownloadsSource {
	case "pypistats", "warehouse", "off":
	default:
		return fmt.Errorf("downloads_source must be pypistats, warehouse or off, got %q", cfg.DownloadsSource)
	}
	if cfg.DownloadsSource == "warehouse" && cfg.WarehouseDSN == "" {
		return fmt.Errorf("warehouse_dsn is required when downloads_source is warehouse")
	}
	if !scheduleTimeRegex.MatchString(cfg.ScheduleTime) {
		return fmt.Errorf("schedule_time must be in HH:MM format (00:00-23:59), got %q", cfg.ScheduleTime)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. TRADEDECK_SERVER_ADDR.
const EnvPrefix = "TRADEDECK"

// DotEnvPath is the env file loaded before overrides are applied.
var DotEnvPath = ".env"

// Gateway sources.
const (
	SourceBackend = "backend"
	SourceYahoo   = "yahoo"
	SourceMock    = "mock"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr    string `yaml:"addr"`
		GinMode string `yaml:"gin_mode" split_words:"true"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Gateway struct {
		Source     string        `yaml:"source"`
		BaseURL    string        `yaml:"base_url" split_words:"true"`
		Timeout    time.Duration `yaml:"timeout"`
		MaxRetries int           `yaml:"max_retries" split_words:"true"`
		MockPrice  float64       `yaml:"mock_price" split_words:"true"`
	} `yaml:"gateway"`
	Cache struct {
		Enabled     bool          `yaml:"enabled"`
		IntradayTTL time.Duration `yaml:"intraday_ttl" split_words:"true"`
		DailyTTL    time.Duration `yaml:"daily_ttl" split_words:"true"`
	} `yaml:"cache"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron" split_words:"true"`
		PurgeCron   string `yaml:"purge_cron" split_words:"true"`
	} `yaml:"schedule"`
	Chat struct {
		ReplyDelay time.Duration `yaml:"reply_delay" split_words:"true"`
	} `yaml:"chat"`
	Analysis struct {
		Delay time.Duration `yaml:"delay"`
	} `yaml:"analysis"`
	Store struct {
		StateFile string `yaml:"state_file" split_words:"true"`
	} `yaml:"store"`
	Recorder struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"recorder"`
	Telegram struct {
		BotToken string `yaml:"bot_token" split_words:"true"`
		ChatID   string `yaml:"chat_id" split_words:"true"`
		Polling  bool   `yaml:"polling"`
	} `yaml:"telegram"`
	Metrics struct {
		Namespace string `yaml:"namespace"`
		Subsystem string `yaml:"subsystem"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides, then defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.presetDefaults()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(DotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", DotEnvPath, err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if cfg.Proxy == "" {
		cfg.Proxy = os.Getenv("HTTPS_PROXY")
	}

	cfg.applyDefaults()
	return cfg, nil
}

// presetDefaults fills the settings for which zero or empty is a valid
// explicit choice: no retries, no cache, no purge, no delay. The file and the
// environment can still override them.
func (c *Config) presetDefaults() {
	c.Cache.Enabled = true
	c.Cache.IntradayTTL = 300 * time.Second
	c.Cache.DailyTTL = 86400 * time.Second
	c.Gateway.MaxRetries = 2
	c.Schedule.PurgeCron = "0 */10 * * * *"
	c.Chat.ReplyDelay = time.Second
	c.Analysis.Delay = 2 * time.Second
}

// applyDefaults fills the settings that are unusable when left empty.
func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.GinMode == "" {
		c.Server.GinMode = "release"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Gateway.Source == "" {
		c.Gateway.Source = SourceBackend
		if c.Gateway.BaseURL == "" {
			c.Gateway.Source = SourceYahoo
		}
	}
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = 15 * time.Second
	}
	if c.Gateway.MockPrice == 0 {
		c.Gateway.MockPrice = 205.78
	}
	if c.Store.StateFile == "" {
		c.Store.StateFile = "data/preferences.json"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "tradedeck"
	}
	if c.Metrics.Subsystem == "" {
		c.Metrics.Subsystem = "dashboard"
	}
}

// Validate checks that the configuration is consistent.
func (c *Config) Validate() error {
	switch c.Gateway.Source {
	case SourceBackend:
		if c.Gateway.BaseURL == "" {
			return fmt.Errorf("gateway.base_url is required for source %q", SourceBackend)
		}
	case SourceYahoo, SourceMock:
	default:
		return fmt.Errorf("gateway.source %q is not one of backend, yahoo, mock", c.Gateway.Source)
	}
	if c.Gateway.MaxRetries < 0 {
		return fmt.Errorf("gateway.max_retries must not be negative")
	}
	if c.Chat.ReplyDelay < 0 || c.Analysis.Delay < 0 {
		return fmt.Errorf("chat.reply_delay and analysis.delay must not be negative")
	}
	switch c.Recorder.Driver {
	case "":
	case "sqlite", "postgres":
		if c.Recorder.DSN == "" {
			return fmt.Errorf("recorder.dsn is required for driver %q", c.Recorder.Driver)
		}
	default:
		return fmt.Errorf("recorder.driver %q is not one of sqlite, postgres", c.Recorder.Driver)
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

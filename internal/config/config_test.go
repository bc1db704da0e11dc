package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func noDotEnv(t *testing.T) {
	t.Helper()
	old := DotEnvPath
	DotEnvPath = filepath.Join(t.TempDir(), "missing.env")
	t.Cleanup(func() { DotEnvPath = old })
}

func TestLoad_Defaults(t *testing.T) {
	noDotEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, SourceYahoo, cfg.Gateway.Source)
	assert.Equal(t, 2, cfg.Gateway.MaxRetries)
	assert.Equal(t, 300*time.Second, cfg.Cache.IntradayTTL)
	assert.Equal(t, 24*time.Hour, cfg.Cache.DailyTTL)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Second, cfg.Chat.ReplyDelay)
	assert.Equal(t, 2*time.Second, cfg.Analysis.Delay)
	assert.Equal(t, "data/preferences.json", cfg.Store.StateFile)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAML(t *testing.T) {
	noDotEnv(t)
	path := writeFile(t, t.TempDir(), "config.yaml", `
server:
  addr: ":9090"
gateway:
  base_url: "http://localhost:8000"
  max_retries: 4
  timeout: 3s
cache:
  enabled: false
chat:
  reply_delay: 250ms
recorder:
  driver: sqlite
  dsn: data/history.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, SourceBackend, cfg.Gateway.Source)
	assert.Equal(t, "http://localhost:8000", cfg.Gateway.BaseURL)
	assert.Equal(t, 4, cfg.Gateway.MaxRetries)
	assert.Equal(t, 3*time.Second, cfg.Gateway.Timeout)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Chat.ReplyDelay)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ExplicitZeroKept(t *testing.T) {
	noDotEnv(t)
	path := writeFile(t, t.TempDir(), "config.yaml", `
gateway:
  max_retries: 0
cache:
  intraday_ttl: 0s
schedule:
  purge_cron: ""
chat:
  reply_delay: 0s
analysis:
  delay: 0s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Zero(t, cfg.Gateway.MaxRetries)
	assert.Zero(t, cfg.Cache.IntradayTTL)
	assert.Equal(t, 24*time.Hour, cfg.Cache.DailyTTL)
	assert.Empty(t, cfg.Schedule.PurgeCron)
	assert.Zero(t, cfg.Chat.ReplyDelay)
	assert.Zero(t, cfg.Analysis.Delay)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvZeroOverridesDefault(t *testing.T) {
	noDotEnv(t)
	t.Setenv("TRADEDECK_GATEWAY_MAX_RETRIES", "0")
	t.Setenv("TRADEDECK_CHAT_REPLY_DELAY", "0s")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)

	assert.Zero(t, cfg.Gateway.MaxRetries)
	assert.Zero(t, cfg.Chat.ReplyDelay)
	assert.Equal(t, 2*time.Second, cfg.Analysis.Delay)
}

func TestLoad_EnvOverrides(t *testing.T) {
	noDotEnv(t)
	path := writeFile(t, t.TempDir(), "config.yaml", "gateway:\n  base_url: http://yaml\n")
	t.Setenv("TRADEDECK_GATEWAY_BASE_URL", "http://env")
	t.Setenv("TRADEDECK_ANALYSIS_DELAY", "5s")
	t.Setenv("TRADEDECK_TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TRADEDECK_TELEGRAM_CHAT_ID", "99")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env", cfg.Gateway.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Analysis.Delay)
	assert.Equal(t, "tok", cfg.Telegram.BotToken)
	assert.Equal(t, "99", cfg.Telegram.ChatID)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	old := DotEnvPath
	DotEnvPath = writeFile(t, dir, ".env", "TRADEDECK_SERVER_ADDR=:7070\n")
	t.Cleanup(func() {
		DotEnvPath = old
		os.Unsetenv("TRADEDECK_SERVER_ADDR")
	})

	cfg, err := Load(filepath.Join(dir, "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestLoad_BadYAML(t *testing.T) {
	noDotEnv(t)
	path := writeFile(t, t.TempDir(), "config.yaml", "server: [")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.applyDefaults()
		return c
	}
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"backend without url", func(c *Config) { c.Gateway.Source = SourceBackend }, false},
		{"unknown source", func(c *Config) { c.Gateway.Source = "finnhub" }, false},
		{"negative retries", func(c *Config) { c.Gateway.MaxRetries = -1 }, false},
		{"sqlite without dsn", func(c *Config) { c.Recorder.Driver = "sqlite" }, false},
		{"unknown driver", func(c *Config) { c.Recorder.Driver = "mysql"; c.Recorder.DSN = "x" }, false},
		{"token without chat", func(c *Config) { c.Telegram.BotToken = "t" }, false},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, false},
		{"mock source", func(c *Config) { c.Gateway.Source = SourceMock }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if tt.ok {
				assert.NoError(t, c.Validate())
			} else {
				assert.Error(t, c.Validate())
			}
		})
	}
}

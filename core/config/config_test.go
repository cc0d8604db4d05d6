package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/studybot/internal/catalog"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
		Catalog: catalog.Definition{Semesters: []catalog.SemesterDef{
			{Key: "s1", Modules: []catalog.ModuleDef{{Key: "ibd"}}},
		}},
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
telegram:
  token: "123:abc"
  run_mode: polling
  http_timeout: 90s
database:
  host: localhost
history:
  idle_ttl: 2h
catalog:
  semesters:
    - key: s1
      modules:
        - key: ibd
          content: {courses: 3}
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, 90*time.Second, cfg.Telegram.HTTPTimeout)
	assert.Equal(t, defaultHTTPRetries, cfg.Telegram.HTTPRetries)
	assert.Equal(t, defaultResourcesRoot, cfg.Resources.Root)
	assert.Equal(t, 2*time.Hour, cfg.History.IdleTTL)
	assert.Equal(t, defaultSweepInterval, cfg.History.SweepInterval)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 4, cfg.Database.MaxConnections)
	assert.Equal(t, "migrations", cfg.Database.MigrationsDir)
	assert.Equal(t, 3, cfg.Catalog.Semesters[0].Modules[0].Content.Courses)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"missing token":   func(c *Config) { c.Telegram.Token = "" },
		"unknown mode":    func(c *Config) { c.Telegram.RunMode = "push" },
		"webhook url":     func(c *Config) { c.Telegram.RunMode = RunModeWebhook },
		"negative poll":   func(c *Config) { c.Telegram.LongPollTimeoutSeconds = -1 },
		"exclude update":  func(c *Config) { c.RateLimit.ExcludeUpdates = []string{"poll"} },
		"negative ttl":    func(c *Config) { c.History.IdleTTL = -time.Second },
		"http timeout":    func(c *Config) { c.Telegram.HTTPTimeout = -time.Second },
		"http retries":    func(c *Config) { c.Telegram.HTTPRetries = -1 },
		"sweep too short": func(c *Config) { c.History.SweepInterval = time.Millisecond },
		"empty catalog":   func(c *Config) { c.Catalog.Semesters = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			assert.Error(t, Normalize(cfg))
		})
	}
	assert.Error(t, Normalize(nil))
}

func TestNormalizeWebhookAndExcludes(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = " Webhook "
	cfg.Webhook = WebhookConfig{URL: "https://bot.example.org/hook", Listen: "0.0.0.0", Port: 8443}
	cfg.RateLimit.ExcludeUpdates = []string{" Callback ", ""}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeWebhook, cfg.Telegram.RunMode)
	assert.Equal(t, []string{UpdateCallback, ""}, cfg.RateLimit.ExcludeUpdates)
	assert.False(t, cfg.Database.Enabled())
}

func TestNormalizeContentSkipsTelegram(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram = TelegramConfig{}
	require.NoError(t, NormalizeContent(cfg))
	assert.Same(t, cfg, cfg.CoreConfig())
}

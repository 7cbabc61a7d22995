package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andygrunwald/fuelprices/internal/models"
	"github.com/andygrunwald/fuelprices/internal/notifier"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 33, cfg.Reconcile.WindowSize)
	assert.Equal(t, 3720*time.Second, cfg.Reconcile.TTL)
	assert.Equal(t, 31, cfg.Reconcile.ThresholdDays)
	assert.Equal(t, 30*time.Minute, cfg.Memo.TTL)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
http:
  addr: ":9090"
  refresh_key: secret
reconcile:
  window_size: 40
  ttl: 2h
hot_store:
  driver: redis
  redis:
    addr: redis:6379
    key_prefix: "fp:"
notifications:
  enabled: true
  subscriptions:
    - fuel_type: Diesel
      target: discord
      url: https://discord.example/hook
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "secret", cfg.HTTP.RefreshKey)
	assert.Equal(t, 40, cfg.Reconcile.WindowSize)
	assert.Equal(t, 2*time.Hour, cfg.Reconcile.TTL)
	assert.Equal(t, 31, cfg.Reconcile.ThresholdDays)
	assert.Equal(t, "redis", cfg.HotStore.Driver)
	assert.Equal(t, "fp:", cfg.HotStore.Redis.KeyPrefix)
	require.Len(t, cfg.Notifications.Subscriptions, 1)
	assert.Equal(t, notifier.Subscription{
		FuelType: models.FuelTypeDiesel,
		Target:   notifier.TargetDiscord,
		URL:      "https://discord.example/hook",
	}, cfg.Notifications.Subscriptions[0])
}

func TestLoadCanonicalizesSubscriptionFuelType(t *testing.T) {
	path := writeConfig(t, `
notifications:
  subscriptions:
    - fuel_type: diesel
      target: discord
      url: https://discord.example/hook
    - fuel_type: UNLEADED95
      target: telegram
      chat_id: "42"
      bot_token: token
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Notifications.Subscriptions, 2)
	assert.Equal(t, models.FuelTypeDiesel, cfg.Notifications.Subscriptions[0].FuelType)
	assert.Equal(t, models.FuelTypeUnleaded95, cfg.Notifications.Subscriptions[1].FuelType)

	_, err = Load(writeConfig(t, "notifications:\n  subscriptions:\n    - fuel_type: kerosene\n      target: discord\n      url: x\n"))
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FUELPRICES_HTTP_EVENTS_KEY", "events")
	t.Setenv("FUELPRICES_RECONCILE_THRESHOLD_DAYS", "7")
	t.Setenv("FUELPRICES_MEMO_TTL", "5m")
	t.Setenv("FUELPRICES_HTTP_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(writeConfig(t, "logging:\n  level: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, "events", cfg.HTTP.EventsKey)
	assert.Equal(t, 7, cfg.Reconcile.ThresholdDays)
	assert.Equal(t, 5*time.Minute, cfg.Memo.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	_, err := Load(writeConfig(t, "hot_store:\n  driver: memcached\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "notifications:\n  subscriptions:\n    - fuel_type: Diesel\n      target: discord\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"cold driver":    func(c *Config) { c.ColdStore.Driver = "ftp" },
		"s3 bucket":      func(c *Config) { c.ColdStore.Driver = "s3"; c.ColdStore.S3.Bucket = "" },
		"postgres dsn":   func(c *Config) { c.HotStore.Driver = "postgres" },
		"mysql dsn":      func(c *Config) { c.HotStore.Driver = "mysql" },
		"window size":    func(c *Config) { c.Reconcile.WindowSize = 0 },
		"ttl":            func(c *Config) { c.Reconcile.TTL = 0 },
		"threshold":      func(c *Config) { c.Reconcile.ThresholdDays = -1 },
		"memo ttl":       func(c *Config) { c.Memo.TTL = 0 },
		"concurrency":    func(c *Config) { c.Queue.Concurrency = 0 },
		"fetch schedule": func(c *Config) { c.Scheduler.FetchSchedule = "" },
		"filesystem dir": func(c *Config) { c.ColdStore.Dir = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// Package config provides configuration structures and loading for the fuel
// price service.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andygrunwald/fuelprices/internal/logging"
	"github.com/andygrunwald/fuelprices/internal/models"
	"github.com/andygrunwald/fuelprices/internal/notifier"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "FUELPRICES"

// Config holds all configuration for the fuel price service.
type Config struct {
	Logging       logging.Config      `mapstructure:"logging"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Provider      ProviderConfig      `mapstructure:"provider"`
	ColdStore     ColdStoreConfig     `mapstructure:"cold_store"`
	HotStore      HotStoreConfig      `mapstructure:"hot_store"`
	Reconcile     ReconcileConfig     `mapstructure:"reconcile"`
	Memo          MemoConfig          `mapstructure:"memo"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Queue         QueueConfig         `mapstructure:"queue"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// RefreshKey authorizes /refresh. Empty rejects every request.
	RefreshKey string `mapstructure:"refresh_key"`
	// EventsKey authorizes /events/price-change. Empty rejects every request.
	EventsKey   string   `mapstructure:"events_key"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// ProviderConfig configures the upstream price provider.
type ProviderConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ColdStoreConfig selects and configures the cold store.
type ColdStoreConfig struct {
	// Driver is one of memory, filesystem or s3.
	Driver string   `mapstructure:"driver"`
	Dir    string   `mapstructure:"dir"`
	S3     S3Config `mapstructure:"s3"`
}

// S3Config configures an S3 compatible bucket such as Cloudflare R2.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// HotStoreConfig selects and configures the hot store.
type HotStoreConfig struct {
	// Driver is one of memory, redis, postgres, mysql or sqlite.
	Driver      string      `mapstructure:"driver"`
	Redis       RedisConfig `mapstructure:"redis"`
	PostgresDSN string      `mapstructure:"postgres_dsn"`
	MySQLDSN    string      `mapstructure:"mysql_dsn"`
	SQLitePath  string      `mapstructure:"sqlite_path"`
}

// RedisConfig configures the Redis hot store.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ReconcileConfig configures tier derivation and selection.
type ReconcileConfig struct {
	WindowSize    int           `mapstructure:"window_size"`
	TTL           time.Duration `mapstructure:"ttl"`
	ThresholdDays int           `mapstructure:"threshold_days"`
}

// MemoConfig configures the local response cache.
type MemoConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// SchedulerConfig configures the cron jobs of the serve command.
type SchedulerConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	FetchSchedule     string `mapstructure:"fetch_schedule"`
	ReconcileSchedule string `mapstructure:"reconcile_schedule"`
	PurgeSchedule     string `mapstructure:"purge_schedule"`
	RunOnStart        bool   `mapstructure:"run_on_start"`
}

// QueueConfig configures detached background work.
type QueueConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// NotificationsConfig configures price change notifications.
type NotificationsConfig struct {
	Enabled         bool                    `mapstructure:"enabled"`
	Subscriptions   []notifier.Subscription `mapstructure:"subscriptions"`
	RemoteURL       string                  `mapstructure:"remote_url"`
	RemoteKey       string                  `mapstructure:"remote_key"`
	DispatchTimeout time.Duration           `mapstructure:"dispatch_timeout"`
	TelegramAPIBase string                  `mapstructure:"telegram_api_base"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			CORSOrigins:  []string{"*"},
		},
		Provider: ProviderConfig{
			URL:     "https://www.ok.dk/privat/produkter/ok-kort/prisudvikling/getProduktHistorik",
			Timeout: 30 * time.Second,
		},
		ColdStore: ColdStoreConfig{
			Driver: "filesystem",
			Dir:    "data",
			S3: S3Config{
				Bucket: "fuelprices",
				Region: "auto",
			},
		},
		HotStore: HotStoreConfig{
			Driver: "memory",
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
			SQLitePath: "data/hot.db",
		},
		Reconcile: ReconcileConfig{
			WindowSize:    33,
			TTL:           3720 * time.Second,
			ThresholdDays: 31,
		},
		Memo: MemoConfig{
			TTL: 30 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			Enabled:           true,
			FetchSchedule:     "0 * * * *",
			ReconcileSchedule: "30 * * * *",
			PurgeSchedule:     "15 3 * * *",
			RunOnStart:        true,
		},
		Queue: QueueConfig{
			Concurrency: 4,
		},
		Notifications: NotificationsConfig{
			Enabled:         false,
			DispatchTimeout: 10 * time.Second,
			TelegramAPIBase: "https://api.telegram.org",
		},
	}
}

// Load builds configuration from defaults, an optional .env file, an
// optional YAML file and FUELPRICES_ environment variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// setDefaults registers every scalar default so that environment variables
// can override keys absent from the config file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.time_format", d.Logging.TimeFormat)
	v.SetDefault("logging.caller", d.Logging.Caller)

	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.read_timeout", d.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", d.HTTP.WriteTimeout)
	v.SetDefault("http.idle_timeout", d.HTTP.IdleTimeout)
	v.SetDefault("http.refresh_key", d.HTTP.RefreshKey)
	v.SetDefault("http.events_key", d.HTTP.EventsKey)
	v.SetDefault("http.cors_origins", d.HTTP.CORSOrigins)

	v.SetDefault("provider.url", d.Provider.URL)
	v.SetDefault("provider.timeout", d.Provider.Timeout)

	v.SetDefault("cold_store.driver", d.ColdStore.Driver)
	v.SetDefault("cold_store.dir", d.ColdStore.Dir)
	v.SetDefault("cold_store.s3.bucket", d.ColdStore.S3.Bucket)
	v.SetDefault("cold_store.s3.prefix", d.ColdStore.S3.Prefix)
	v.SetDefault("cold_store.s3.endpoint", d.ColdStore.S3.Endpoint)
	v.SetDefault("cold_store.s3.region", d.ColdStore.S3.Region)
	v.SetDefault("cold_store.s3.access_key_id", d.ColdStore.S3.AccessKeyID)
	v.SetDefault("cold_store.s3.secret_access_key", d.ColdStore.S3.SecretAccessKey)

	v.SetDefault("hot_store.driver", d.HotStore.Driver)
	v.SetDefault("hot_store.redis.addr", d.HotStore.Redis.Addr)
	v.SetDefault("hot_store.redis.username", d.HotStore.Redis.Username)
	v.SetDefault("hot_store.redis.password", d.HotStore.Redis.Password)
	v.SetDefault("hot_store.redis.db", d.HotStore.Redis.DB)
	v.SetDefault("hot_store.redis.key_prefix", d.HotStore.Redis.KeyPrefix)
	v.SetDefault("hot_store.postgres_dsn", d.HotStore.PostgresDSN)
	v.SetDefault("hot_store.mysql_dsn", d.HotStore.MySQLDSN)
	v.SetDefault("hot_store.sqlite_path", d.HotStore.SQLitePath)

	v.SetDefault("reconcile.window_size", d.Reconcile.WindowSize)
	v.SetDefault("reconcile.ttl", d.Reconcile.TTL)
	v.SetDefault("reconcile.threshold_days", d.Reconcile.ThresholdDays)

	v.SetDefault("memo.ttl", d.Memo.TTL)

	v.SetDefault("scheduler.enabled", d.Scheduler.Enabled)
	v.SetDefault("scheduler.fetch_schedule", d.Scheduler.FetchSchedule)
	v.SetDefault("scheduler.reconcile_schedule", d.Scheduler.ReconcileSchedule)
	v.SetDefault("scheduler.purge_schedule", d.Scheduler.PurgeSchedule)
	v.SetDefault("scheduler.run_on_start", d.Scheduler.RunOnStart)

	v.SetDefault("queue.concurrency", d.Queue.Concurrency)

	v.SetDefault("notifications.enabled", d.Notifications.Enabled)
	v.SetDefault("notifications.remote_url", d.Notifications.RemoteURL)
	v.SetDefault("notifications.remote_key", d.Notifications.RemoteKey)
	v.SetDefault("notifications.dispatch_timeout", d.Notifications.DispatchTimeout)
	v.SetDefault("notifications.telegram_api_base", d.Notifications.TelegramAPIBase)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			fuelTypeHookFunc(),
		)
	}
}

// fuelTypeHookFunc decodes any casing of a fuel type name to its canonical
// spelling. Unknown names pass through so Validate can report them.
func fuelTypeHookFunc() mapstructure.DecodeHookFuncType {
	fuelType := reflect.TypeOf(models.FuelType(""))
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != fuelType {
			return data, nil
		}
		if ft, ok := models.ParseFuelType(reflect.ValueOf(data).String()); ok {
			return ft, nil
		}
		return data, nil
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	switch c.ColdStore.Driver {
	case "memory", "filesystem", "s3":
	default:
		return fmt.Errorf("cold_store.driver %q is not one of memory, filesystem, s3", c.ColdStore.Driver)
	}
	if c.ColdStore.Driver == "filesystem" && c.ColdStore.Dir == "" {
		return fmt.Errorf("cold_store.dir is required for the filesystem driver")
	}
	if c.ColdStore.Driver == "s3" && c.ColdStore.S3.Bucket == "" {
		return fmt.Errorf("cold_store.s3.bucket is required for the s3 driver")
	}

	switch c.HotStore.Driver {
	case "memory", "redis", "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("hot_store.driver %q is not one of memory, redis, postgres, mysql, sqlite", c.HotStore.Driver)
	}
	if c.HotStore.Driver == "redis" && c.HotStore.Redis.Addr == "" {
		return fmt.Errorf("hot_store.redis.addr is required for the redis driver")
	}
	if c.HotStore.Driver == "postgres" && c.HotStore.PostgresDSN == "" {
		return fmt.Errorf("hot_store.postgres_dsn is required for the postgres driver")
	}
	if c.HotStore.Driver == "mysql" && c.HotStore.MySQLDSN == "" {
		return fmt.Errorf("hot_store.mysql_dsn is required for the mysql driver")
	}
	if c.HotStore.Driver == "sqlite" && c.HotStore.SQLitePath == "" {
		return fmt.Errorf("hot_store.sqlite_path is required for the sqlite driver")
	}

	if c.Reconcile.WindowSize <= 0 {
		return fmt.Errorf("reconcile.window_size must be greater than zero")
	}
	if c.Reconcile.TTL <= 0 {
		return fmt.Errorf("reconcile.ttl must be greater than zero")
	}
	if c.Reconcile.ThresholdDays < 0 {
		return fmt.Errorf("reconcile.threshold_days cannot be negative")
	}
	if c.Memo.TTL <= 0 {
		return fmt.Errorf("memo.ttl must be greater than zero")
	}
	if c.Queue.Concurrency <= 0 {
		return fmt.Errorf("queue.concurrency must be greater than zero")
	}
	if c.Scheduler.Enabled && (c.Scheduler.FetchSchedule == "" || c.Scheduler.ReconcileSchedule == "") {
		return fmt.Errorf("scheduler.fetch_schedule and scheduler.reconcile_schedule are required when the scheduler is enabled")
	}

	for i, sub := range c.Notifications.Subscriptions {
		if err := sub.Validate(); err != nil {
			return fmt.Errorf("notifications.subscriptions[%d]: %w", i, err)
		}
	}
	return nil
}

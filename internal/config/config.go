package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	Cron    CronConfig    `mapstructure:"cron"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Collect CollectConfig `mapstructure:"collect"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BulkCollect string `mapstructure:"bulk_collect"`
}

// FetchConfig points the collector at the race-information sites. The base
// URLs are overridable so tests and mirrors can be targeted without code
// changes.
type FetchConfig struct {
	RaceBaseURL     string        `mapstructure:"race_base_url"`
	ScheduleBaseURL string        `mapstructure:"schedule_base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ReadyWait       time.Duration `mapstructure:"ready_wait"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
}

type CollectConfig struct {
	RateLimit float64 `mapstructure:"rate_limit"`
	Workers   int     `mapstructure:"workers"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("KEIBA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.bulk_collect", "0 0 3 1 * *")
	v.SetDefault("fetch.race_base_url", "https://racev3.netkeiba.com")
	v.SetDefault("fetch.schedule_base_url", "https://keiba.yahoo.co.jp")
	v.SetDefault("fetch.timeout", "15s")
	v.SetDefault("fetch.ready_wait", "5s")
	v.SetDefault("fetch.poll_interval", "500ms")
	v.SetDefault("collect.rate_limit", 1.0)
	v.SetDefault("collect.workers", 4)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

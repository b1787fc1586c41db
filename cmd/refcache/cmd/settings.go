package cmd

import (
	"time"

	"github.com/spf13/viper"

	"github.com/goliatone/go-repository-service/cache"
	"github.com/goliatone/go-repository-service/pkg/di"
)

const (
	defaultBackend = string(di.BackendSturdyc)
	defaultStore   = "memory"
	defaultLog     = "zap"
)

type cacheSettings struct {
	AppName           string        `mapstructure:"app_name"`
	UniqueKey         string        `mapstructure:"unique_key"`
	TTL               time.Duration `mapstructure:"ttl"`
	Disabled          bool          `mapstructure:"disabled"`
	NormalizeKeyOrder bool          `mapstructure:"normalize_key_order"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	Codec             string        `mapstructure:"codec"`
}

type redisSettings struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type dsnSettings struct {
	DSN string `mapstructure:"dsn"`
}

// settings mirrors the viper keys. Nested keys map to environment variables
// with dots replaced, e.g. cache.ttl is REFCACHE_CACHE_TTL.
type settings struct {
	Cache    cacheSettings `mapstructure:"cache"`
	Backend  string        `mapstructure:"backend"`
	Redis    redisSettings `mapstructure:"redis"`
	Store    string        `mapstructure:"store"`
	SQLite   dsnSettings   `mapstructure:"sqlite"`
	Postgres dsnSettings   `mapstructure:"postgres"`
	Log      string        `mapstructure:"log"`
	Debug    bool          `mapstructure:"debug"`
	Metrics  bool          `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	defaults := cache.DefaultConfig()
	v.SetDefault("cache.app_name", "App")
	v.SetDefault("cache.unique_key", "")
	v.SetDefault("cache.ttl", defaults.TTL)
	v.SetDefault("cache.disabled", false)
	v.SetDefault("cache.normalize_key_order", false)
	v.SetDefault("cache.write_timeout", defaults.WriteTimeout)
	v.SetDefault("cache.codec", defaults.Codec)

	v.SetDefault("backend", defaultBackend)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("store", defaultStore)
	v.SetDefault("sqlite.dsn", "file::memory:?cache=shared")
	v.SetDefault("postgres.dsn", "")

	v.SetDefault("log", defaultLog)
	v.SetDefault("debug", false)
	v.SetDefault("metrics", false)
}

func loadSettings(v *viper.Viper) (settings, error) {
	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, err
	}
	return s, nil
}

func (s settings) container() di.Config {
	cfg := di.DefaultConfig()
	cfg.Backend = di.BackendKind(s.Backend)
	cfg.Redis = di.RedisConfig{
		Addr:     s.Redis.Addr,
		Password: s.Redis.Password,
		DB:       s.Redis.DB,
	}

	cfg.Cache.AppName = s.Cache.AppName
	cfg.Cache.TTL = s.Cache.TTL
	cfg.Cache.Disabled = s.Cache.Disabled
	cfg.Cache.NormalizeKeyOrder = s.Cache.NormalizeKeyOrder
	cfg.Cache.WriteTimeout = s.Cache.WriteTimeout
	cfg.Cache.Codec = s.Cache.Codec
	return cfg
}

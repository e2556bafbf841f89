package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Redis   RedisConfig   `mapstructure:"redis"`
	UI      UIConfig      `mapstructure:"ui"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// StoreConfig selects where the list is persisted.
type StoreConfig struct {
	Backend string `mapstructure:"backend"` // json | yaml | sqlite | redis
	Path    string `mapstructure:"path"`    // file or database path; empty picks todos.json, todos.yaml or todos.db
}

// RedisConfig holds settings for the redis backend.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Key      string        `mapstructure:"key"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Theme  string `mapstructure:"theme"`  // classic | neon | mono
	Filter string `mapstructure:"filter"` // filter applied at startup
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // interactive sessions log here; empty discards
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // e.g. ":2112"; empty disables the endpoint
}

// EnvConfig names the variable pointing at an explicit config file.
const EnvConfig = "TODO_CONFIG"

// New returns a viper instance with defaults, file lookup and TODO_ env overrides set up.
// path overrides $TODO_CONFIG when non-empty. Callers may bind flags before Decode.
func New(path string) *viper.Viper {
	v := viper.New()

	v.SetDefault("store.backend", "json")
	v.SetDefault("store.path", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "todo:items")
	v.SetDefault("redis.ttl", time.Duration(0))
	v.SetDefault("ui.theme", "classic")
	v.SetDefault("ui.filter", "all")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("metrics.addr", "")

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		v.SetConfigFile(path)
	} else if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "todo"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("TODO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Decode reads the config file if present and unmarshals v.
// A missing file is not an error; a malformed one is.
func Decode(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

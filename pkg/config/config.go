// Package config loads crawler settings from defaults, an optional YAML
// file, a .env file and EPISODES_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"episode-crawler/pkg/browser"
	"episode-crawler/pkg/crawler"
	"episode-crawler/pkg/db"
	"episode-crawler/pkg/feed"
	"episode-crawler/pkg/logger"
)

// EnvPrefix prefixes every environment override, e.g.
// EPISODES_CRAWLER_MAX_EXPANSIONS.
const EnvPrefix = "EPISODES"

// Store drivers.
const (
	DriverNone     = "none"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSupabase = "supabase"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full application configuration.
type Config struct {
	Log     logger.Config   `mapstructure:"log"`
	Crawler crawler.Config  `mapstructure:"crawler"`
	Browser browser.Options `mapstructure:"browser"`
	Feed    feed.Config     `mapstructure:"feed"`
	Store   StoreConfig     `mapstructure:"store"`
}

// StoreConfig selects and configures the episode store.
type StoreConfig struct {
	Driver   string            `mapstructure:"driver"`
	Mongo    MongoConfig       `mapstructure:"mongo"`
	Postgres db.PostgresConfig `mapstructure:"postgres"`
	Supabase db.SupabaseConfig `mapstructure:"supabase"`
}

// MongoConfig locates the episode collection.
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// Load reads the configuration. path may be empty, in which case
// config.yaml is looked up in . and ./config and may be absent.
func Load(path string) (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if err := c.Crawler.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	switch c.Store.Driver {
	case "", DriverNone:
	case DriverMongo:
		if c.Store.Mongo.URI == "" {
			return fmt.Errorf("%w: store.mongo.uri is required", ErrInvalidConfig)
		}
	case DriverPostgres:
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("%w: store.postgres.dsn is required", ErrInvalidConfig)
		}
	case DriverSupabase:
		s := c.Store.Supabase
		direct := s.ConnectionString != "" || (s.SupabaseURL != "" && s.Password != "")
		rest := s.SupabaseURL != "" && s.SupabaseKey != ""
		if !direct && !rest {
			return fmt.Errorf("%w: store.supabase needs connection_string, url+password or url+key", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store.driver %q", ErrInvalidConfig, c.Store.Driver)
	}

	return nil
}

// HasStore reports whether crawled episodes are persisted.
func (c *Config) HasStore() bool {
	return c.Store.Driver != "" && c.Store.Driver != DriverNone
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	strutil "postcheck/pkg/platform/strings"
)

const (
	envPrefix     = "POSTCHECK_"
	configFileEnv = "POSTCHECK_CONFIG"
	seedKey       = "registry.seed"
)

// Storage backends for the prefix registry.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
)

// DefaultSeed is the set of standard-area prefixes installed on first start.
var DefaultSeed = []string{"10", "11", "20", "25", "30", "35", "40", "50", "60", "70", "80", "90"}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	Storage  StorageConfig  `koanf:"storage"`
	Redis    RedisConfig    `koanf:"redis"`
	Registry RegistryConfig `koanf:"registry"`
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type StorageConfig struct {
	Backend  string         `koanf:"backend"`
	Postgres PostgresConfig `koanf:"postgres"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
}

type PostgresConfig struct {
	DSN          string        `koanf:"dsn"`
	Driver       string        `koanf:"driver"`
	MaxOpenConns int           `koanf:"max_open_conns"`
	MaxIdleConns int           `koanf:"max_idle_conns"`
	ConnTimeout  time.Duration `koanf:"conn_timeout"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// RedisConfig is used both for the redis registry backend and its health check.
type RedisConfig struct {
	URL          string        `koanf:"url"`
	Key          string        `koanf:"key"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// RegistryConfig holds the bootstrap seed; an empty seed falls back to DefaultSeed.
type RegistryConfig struct {
	Seed []string `koanf:"seed"`
}

// Default returns the configuration used when neither file nor env override a key.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			RequestTimeout:    30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Storage: StorageConfig{
			Backend: BackendMemory,
			Postgres: PostgresConfig{
				Driver:       "pgx",
				MaxOpenConns: 10,
				MaxIdleConns: 5,
				ConnTimeout:  5 * time.Second,
			},
			SQLite: SQLiteConfig{Path: "postal_prefixes.db"},
		},
		Redis: RedisConfig{
			Key:          "postal_prefixes",
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}

// Load layers defaults, an optional YAML file named by POSTCHECK_CONFIG, and
// POSTCHECK_* environment variables. Nested keys use "__" in env names, e.g.
// POSTCHECK_STORAGE__BACKEND=postgres.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(configFileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Registry.Seed = strutil.DedupeAndTrim(cfg.Registry.Seed)
	if len(cfg.Registry.Seed) == 0 {
		cfg.Registry.Seed = append([]string(nil), DefaultSeed...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	if s == configFileEnv {
		return ""
	}
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// envValue maps an environment variable to its config key. List-valued keys
// are comma separated.
func envValue(name, value string) (string, any) {
	key := envKey(name)
	if key == seedKey {
		return key, strutil.SplitList(value, ",")
	}
	return key, value
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres backend")
		}
		switch c.Storage.Postgres.Driver {
		case "pgx", "postgres":
		default:
			return fmt.Errorf("unsupported postgres driver %q", c.Storage.Postgres.Driver)
		}
	case BackendSQLite:
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for the sqlite backend")
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("redis.url is required for the redis backend")
		}
		if c.Redis.Key == "" {
			return fmt.Errorf("redis.key cannot be empty")
		}
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}
	return nil
}

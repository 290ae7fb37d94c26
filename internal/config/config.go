package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Snapshot store backends.
const (
	BackendNone      = "none"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendAzureBlob = "azblob"
	BackendRedis     = "redis"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Oura      OuraConfig      `yaml:"oura"`
	Store     StoreConfig     `yaml:"store"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// OuraConfig configures the upstream provider. AccessToken may be empty at
// load time; the proxy then answers every request with a configuration error.
type OuraConfig struct {
	BaseURL     string `yaml:"base_url"`
	AccessToken string `yaml:"access_token"`
	Timezone    string `yaml:"timezone"`
}

// Location resolves Timezone. Empty or "Local" is the process timezone.
func (o OuraConfig) Location() (*time.Location, error) {
	if o.Timezone == "" || o.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return nil, fmt.Errorf("oura.timezone %q: %w", o.Timezone, err)
	}
	return loc, nil
}

type StoreConfig struct {
	Backend   string          `yaml:"backend"`
	Postgres  DatabaseConfig  `yaml:"postgres"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	AzureBlob AzureBlobConfig `yaml:"azblob"`
	Redis     RedisConfig     `yaml:"redis"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// AzureBlobConfig accepts either a connection string or an account
// name/key pair.
type AzureBlobConfig struct {
	ConnectionString string `yaml:"connection_string"`
	AccountName      string `yaml:"account_name"`
	AccountKey       string `yaml:"account_key"`
	Container        string `yaml:"container"`
	Prefix           string `yaml:"prefix"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel maps Level onto slog. Unknown or empty values mean info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix OURAVIZ_ and underscore-separated paths:
//
//	OURAVIZ_SERVER_HOST, OURAVIZ_SERVER_PORT,
//	OURAVIZ_OURA_BASE_URL, OURAVIZ_OURA_TIMEZONE,
//	OURAVIZ_STORE_BACKEND,
//	OURAVIZ_DB_HOST, OURAVIZ_DB_PORT, OURAVIZ_DB_NAME,
//	OURAVIZ_DB_USER, OURAVIZ_DB_PASSWORD, OURAVIZ_DB_SSLMODE,
//	OURAVIZ_SQLITE_PATH,
//	OURAVIZ_AZBLOB_CONNECTION_STRING, OURAVIZ_AZBLOB_ACCOUNT_NAME,
//	OURAVIZ_AZBLOB_ACCOUNT_KEY, OURAVIZ_AZBLOB_CONTAINER,
//	OURAVIZ_REDIS_ADDR, OURAVIZ_REDIS_PASSWORD, OURAVIZ_REDIS_DB,
//	OURAVIZ_TAILSCALE_ENABLED, OURAVIZ_TAILSCALE_HOSTNAME,
//	OURAVIZ_LOG_LEVEL
//
// The access token comes from OURA_PERSONAL_ACCESS_TOKEN.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.Host, "OURAVIZ_SERVER_HOST")
	setInt(&cfg.Server.Port, "OURAVIZ_SERVER_PORT")

	setString(&cfg.Oura.AccessToken, "OURA_PERSONAL_ACCESS_TOKEN")
	setString(&cfg.Oura.BaseURL, "OURAVIZ_OURA_BASE_URL")
	setString(&cfg.Oura.Timezone, "OURAVIZ_OURA_TIMEZONE")

	setString(&cfg.Store.Backend, "OURAVIZ_STORE_BACKEND")
	db := &cfg.Store.Postgres
	setString(&db.Host, "OURAVIZ_DB_HOST")
	setInt(&db.Port, "OURAVIZ_DB_PORT")
	setString(&db.Name, "OURAVIZ_DB_NAME")
	setString(&db.User, "OURAVIZ_DB_USER")
	setString(&db.Password, "OURAVIZ_DB_PASSWORD")
	setString(&db.SSLMode, "OURAVIZ_DB_SSLMODE")
	setString(&cfg.Store.SQLite.Path, "OURAVIZ_SQLITE_PATH")
	blob := &cfg.Store.AzureBlob
	setString(&blob.ConnectionString, "OURAVIZ_AZBLOB_CONNECTION_STRING")
	setString(&blob.AccountName, "OURAVIZ_AZBLOB_ACCOUNT_NAME")
	setString(&blob.AccountKey, "OURAVIZ_AZBLOB_ACCOUNT_KEY")
	setString(&blob.Container, "OURAVIZ_AZBLOB_CONTAINER")
	setString(&cfg.Store.Redis.Addr, "OURAVIZ_REDIS_ADDR")
	setString(&cfg.Store.Redis.Password, "OURAVIZ_REDIS_PASSWORD")
	setInt(&cfg.Store.Redis.DB, "OURAVIZ_REDIS_DB")

	if v := os.Getenv("OURAVIZ_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	setString(&cfg.Tailscale.Hostname, "OURAVIZ_TAILSCALE_HOSTNAME")
	setString(&cfg.Log.Level, "OURAVIZ_LOG_LEVEL")
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if _, err := c.Oura.Location(); err != nil {
		return err
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	switch c.Store.Backend {
	case "", BackendNone:
		c.Store.Backend = BackendNone
	case BackendPostgres:
		db := c.Store.Postgres
		if db.Host == "" {
			return fmt.Errorf("store.postgres.host is required")
		}
		if db.Port == 0 {
			return fmt.Errorf("store.postgres.port is required")
		}
		if db.Name == "" {
			return fmt.Errorf("store.postgres.name is required")
		}
		if db.User == "" {
			return fmt.Errorf("store.postgres.user is required")
		}
	case BackendSQLite:
		if c.Store.SQLite.Path == "" {
			return fmt.Errorf("store.sqlite.path is required")
		}
	case BackendAzureBlob:
		b := c.Store.AzureBlob
		if b.Container == "" {
			return fmt.Errorf("store.azblob.container is required")
		}
		if b.ConnectionString == "" && (b.AccountName == "" || b.AccountKey == "") {
			return fmt.Errorf("store.azblob needs connection_string or account_name and account_key")
		}
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required")
		}
	default:
		return fmt.Errorf("store.backend %q is not one of none, postgres, sqlite, azblob, redis", c.Store.Backend)
	}
	return nil
}

package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Store       StoreConfig
	Leaderboard LeaderboardConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxConn      int
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

type StoreConfig struct {
	Driver     string
	SQLitePath string
}

type LeaderboardConfig struct {
	CacheTTL        time.Duration
	RefreshInterval time.Duration
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
	Output   string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads the server configuration from environment variables
// (optionally .env) and applies defaults.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	e := &env{}
	cfg := &Config{
		AppName: e.str("APP_NAME", "questlog"),
		HTTP: HTTPConfig{
			Host:         e.str("SERVER_HOST", "0.0.0.0"),
			Port:         e.str("SERVER_PORT", "8080"),
			ReadTimeout:  e.duration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: e.duration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  e.duration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:      e.integer("SERVER_MAX_CONN", 0),
		},
		Database: DatabaseConfig{
			URL:             e.str("DATABASE_URL", ""),
			Host:            e.str("DB_HOST", "localhost"),
			Port:            e.str("DB_PORT", "5432"),
			Name:            e.str("DB_NAME", "questlog"),
			User:            e.str("DB_USER", "questlog"),
			Password:        e.str("DB_PASSWORD", ""),
			MaxOpenConns:    e.integer("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    e.integer("DB_MAX_IDLE_CONNS", 10),
			MaxConnLifetime: e.duration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         e.str("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  e.boolean("REDIS_ENABLED", false),
			URL:      e.str("REDIS_URL", "redis://localhost:6379"),
			Password: e.str("REDIS_PASSWORD", ""),
			DB:       e.integer("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: e.str("JWT_SECRET", ""),
			Issuer: e.str("JWT_ISSUER", ""),
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(e.str("STORE_DRIVER", StoreDriverPostgres)),
			SQLitePath: e.str("SQLITE_PATH", "./data/questlog.db"),
		},
		Leaderboard: LeaderboardConfig{
			CacheTTL:        e.duration("LEADERBOARD_CACHE_TTL", time.Minute),
			RefreshInterval: e.duration("LEADERBOARD_REFRESH_INTERVAL", 5*time.Minute),
		},
		Context: ContextConfig{
			RequestTimeout:  e.duration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: e.duration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    e.str("LOG_LEVEL", "info"),
			Encoding: e.str("LOG_ENCODING", "json"),
			Output:   "stdout",
		},
		Migrations: MigrationsConfig{
			Enabled: e.boolean("RUN_MIGRATIONS", true),
			Path:    e.str("MIGRATIONS_PATH", ""),
		},
	}
	if err := e.err(); err != nil {
		return nil, err
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = cfg.Database.connString()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverSQLite:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Leaderboard.CacheTTL <= 0 {
		return fmt.Errorf("LEADERBOARD_CACHE_TTL must be positive")
	}
	return nil
}

func (d DatabaseConfig) connString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return net.JoinHostPort(c.HTTP.Host, c.HTTP.Port)
}

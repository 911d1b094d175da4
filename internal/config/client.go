package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// ClientConfig holds the settings of the device-local CLI.
type ClientConfig struct {
	APIURL          string
	DataPath        string
	RequestTimeout  time.Duration
	RetryAttempts   int
	RetryBaseDelay  time.Duration
	PushDebounce    time.Duration
	BreakerFailures int
	BreakerTimeout  time.Duration
	Logger          LoggerConfig
}

// LoadClient reads QUESTLOG_* variables (optionally from .env).
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load(".env")

	e := &env{}
	cfg := &ClientConfig{
		APIURL:          e.str("QUESTLOG_API_URL", "http://localhost:8080"),
		DataPath:        e.str("QUESTLOG_DATA_PATH", defaultDataPath()),
		RequestTimeout:  e.duration("QUESTLOG_REQUEST_TIMEOUT", 10*time.Second),
		RetryAttempts:   e.integer("QUESTLOG_RETRY_ATTEMPTS", 3),
		RetryBaseDelay:  e.duration("QUESTLOG_RETRY_BASE_DELAY", time.Second),
		PushDebounce:    e.duration("QUESTLOG_PUSH_DEBOUNCE", 0),
		BreakerFailures: e.integer("QUESTLOG_BREAKER_FAILURES", 5),
		BreakerTimeout:  e.duration("QUESTLOG_BREAKER_TIMEOUT", 30*time.Second),
		Logger: LoggerConfig{
			Level:    e.str("QUESTLOG_LOG_LEVEL", "warn"),
			Encoding: "console",
			Output:   "stderr",
		},
	}
	if err := e.err(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c *ClientConfig) Validate() error {
	if c.DataPath == "" {
		return fmt.Errorf("QUESTLOG_DATA_PATH must not be empty")
	}
	if c.RetryAttempts <= 0 {
		return fmt.Errorf("QUESTLOG_RETRY_ATTEMPTS must be positive")
	}
	if c.BreakerFailures <= 0 {
		return fmt.Errorf("QUESTLOG_BREAKER_FAILURES must be positive")
	}
	return nil
}

func defaultDataPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "questlog", "device.db")
	}
	return filepath.Join(".", "data", "device.db")
}

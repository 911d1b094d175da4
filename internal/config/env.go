package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// env reads typed variables and remembers every malformed one, so a typo in
// the environment fails startup instead of silently using a default.
type env struct {
	errs []error
}

func (e *env) str(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func (e *env) integer(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		e.fail(key, val, "an integer")
		return fallback
	}
	return parsed
}

func (e *env) boolean(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		e.fail(key, val, "a boolean")
		return fallback
	}
	return parsed
}

// duration accepts Go durations ("90s") or whole seconds ("90").
func (e *env) duration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(val); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(val); err == nil {
		return time.Duration(seconds) * time.Second
	}
	e.fail(key, val, "a duration")
	return fallback
}

func (e *env) fail(key, val, want string) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q is not %s", key, val, want))
}

func (e *env) err() error {
	return errors.Join(e.errs...)
}

package runtime

import (
	"os"
	"strconv"
	"time"
)

// Environment variables recognized by ConfigFromEnv.
const (
	EnvHeadless    = "WEBPROOF_HEADLESS"
	EnvTimeoutMS   = "WEBPROOF_TIMEOUT_MS"
	EnvMaxSteps    = "WEBPROOF_MAX_STEPS"
	EnvSessionsDir = "WEBPROOF_SESSIONS_DIR"
)

// Defaults applied when the corresponding variable is unset or malformed.
const (
	DefaultTimeout     = 12000 * time.Millisecond
	DefaultMaxSteps    = 30
	DefaultSessionsDir = "runtime/sessions"
)

// Config carries every tunable the run driver needs. It is constructed once
// at run start and threaded through explicitly — nothing below this layer
// reads the environment.
type Config struct {
	Headless    bool
	Timeout     time.Duration // per browser operation
	MaxSteps    int           // step budget for the action loop
	SessionsDir string        // root under which session dirs are allocated
}

// DefaultConfig returns the built-in defaults: headless, 12s per operation,
// 30 steps, runtime/sessions.
func DefaultConfig() Config {
	return Config{
		Headless:    true,
		Timeout:     DefaultTimeout,
		MaxSteps:    DefaultMaxSteps,
		SessionsDir: DefaultSessionsDir,
	}
}

// ConfigFromEnv builds a Config from the WEBPROOF_* variables, falling back
// to defaults for anything unset. Each knob is independently overridable.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv(EnvHeadless); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Headless = b
		}
	}
	if v := os.Getenv(EnvTimeoutMS); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Timeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv(EnvMaxSteps); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSteps = n
		}
	}
	if v := os.Getenv(EnvSessionsDir); v != "" {
		cfg.SessionsDir = v
	}
	return cfg
}

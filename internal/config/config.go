package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; every value has a default so the service can be
// started with no environment at all inside a compose stack.
type Config struct {
	Env     string // application environment (e.g. "development", "production")
	AppName string // title rendered on the status page
	Port    string // HTTP port to listen on (all interfaces)

	CounterBackend string        // redis, mysql or postgres
	CounterKey     string        // key (or row name) of the visit counter
	CounterTimeout time.Duration // upper bound for a single increment

	NetworkDescription string // static topology line shown on the status page
	LogLevel           string // echo logger level

	DBUser string // mysql user
	DBPass string // mysql password (optional)
	DBHost string // mysql host (service name)
	DBPort string // mysql port
	DBName string // mysql database

	DatabaseURL string // postgres connection string

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Events    EventsConfig
}

// Load reads the optional .env file and the process environment and returns
// a validated Config.
func Load() (Config, error) {
	// A missing .env is the normal case inside containers.
	_ = godotenv.Load()

	cfg := Config{
		Env:                envStr("APP_ENV", "development"),
		AppName:            envStr("APP_NAME", "API Service"),
		Port:               envStr("APP_PORT", "8000"),
		CounterBackend:     strings.ToLower(envStr("COUNTER_BACKEND", "redis")),
		CounterKey:         envStr("COUNTER_KEY", "visit_counter"),
		CounterTimeout:     envDur("COUNTER_TIMEOUT", 2*time.Second),
		NetworkDescription: envStr("NETWORK_DESCRIPTION", "Connected to frontend and backend"),
		LogLevel:           strings.ToLower(envStr("LOG_LEVEL", "info")),
		DBUser:             envStr("DB_USER", "app"),
		DBPass:             os.Getenv("DB_PASS"),
		DBHost:             envStr("DB_HOST", "mysql"),
		DBPort:             envStr("DB_PORT", "3306"),
		DBName:             envStr("DB_NAME", "app"),
		DatabaseURL:        envStr("DATABASE_URL", "postgres://app@postgres:5432/app"),
		Redis:              LoadRedisConfig(),
		RateLimit:          LoadRateLimitConfig(),
		Events:             LoadEventsConfig(),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid APP_PORT %q", c.Port)
	}
	switch c.CounterBackend {
	case "redis", "mysql", "postgres":
	default:
		return fmt.Errorf("invalid COUNTER_BACKEND %q (want redis, mysql or postgres)", c.CounterBackend)
	}
	if strings.TrimSpace(c.CounterKey) == "" {
		return errors.New("COUNTER_KEY must not be empty")
	}
	if c.CounterTimeout <= 0 {
		return errors.New("COUNTER_TIMEOUT must be > 0")
	}
	return nil
}

// Addr is the listen address; the port is bound on all interfaces.
func (c Config) Addr() string { return ":" + c.Port }

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}

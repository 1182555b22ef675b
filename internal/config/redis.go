package config

// This file builds the Redis client shared by the visit counter and the
// Redis-backed rate limiter. The client is created once at startup and never
// pings the server: Redis may come up after this service, so connectivity is
// only discovered by the first request that needs it.

import (
	"crypto/tls"
	"net"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig carries the connection settings read from REDIS_* variables.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	TLS          bool
	TLSInsecure  bool
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LoadRedisConfig reads the Redis connection settings. Supported variables are:
//
//	REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//	REDIS_ADDR – host:port shorthand (REDIS_HOST/REDIS_PORT win if both are set)
//	REDIS_PASSWORD – optional password
//	REDIS_DB – database number (default 0)
//	REDIS_TLS – enable TLS when "true" or "1"
//	REDIS_TLS_INSECURE – skip certificate verification (self-signed dev certs only)
//	REDIS_DIAL_TIMEOUT, REDIS_READ_TIMEOUT, REDIS_WRITE_TIMEOUT
//
// With nothing set the address is the compose service name "redis:6379".
func LoadRedisConfig() RedisConfig {
	host := os.Getenv("REDIS_HOST")
	port := envStr("REDIS_PORT", "6379")
	addr := os.Getenv("REDIS_ADDR")
	if host != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "redis:6379"
	}
	tlsEnv := os.Getenv("REDIS_TLS")
	return RedisConfig{
		Addr:         addr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           envInt("REDIS_DB", 0),
		TLS:          strings.EqualFold(tlsEnv, "true") || tlsEnv == "1",
		TLSInsecure:  envBool("REDIS_TLS_INSECURE", false),
		DialTimeout:  envDur("REDIS_DIAL_TIMEOUT", time.Second),
		ReadTimeout:  envDur("REDIS_READ_TIMEOUT", time.Second),
		WriteTimeout: envDur("REDIS_WRITE_TIMEOUT", time.Second),
	}
}

// NewRedisClient instantiates a Redis client from rc. It does not contact
// the server.
func NewRedisClient(rc RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if rc.TLS {
		host, _, err := net.SplitHostPort(rc.Addr)
		if err != nil {
			host = rc.Addr
		}
		tlsConf = &tls.Config{
			ServerName:         host,
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: rc.TLSInsecure,
		}
	}
	return redis.NewClient(&redis.Options{
		Addr:         rc.Addr,
		Password:     rc.Password,
		DB:           rc.DB,
		TLSConfig:    tlsConf,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
		// A down store should degrade one request, not retry it several times.
		MaxRetries: 1,
	})
}

// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	KafkaBrokers []string // event log bootstrap brokers

	AMQPURL string // notification broker URL (optional; empty disables)

	VerifyTimeout        time.Duration // bound on the claim verification scan
	ViewDiscoverInterval time.Duration // play topic discovery period
	ViewReadBackoff      time.Duration // delay before resuming after a read error
}

// Load reads configuration values from environment variables and returns a
// Config.
func Load() Config {
	return Config{
		Env:    must("APP_ENV"),
		Port:   must("APP_PORT"),
		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		KafkaBrokers: splitList(must("KAFKA_BROKERS")),

		AMQPURL: os.Getenv("AMQP_URL"),

		VerifyTimeout:        envDur("VERIFY_TIMEOUT", 5*time.Second),
		ViewDiscoverInterval: envDur("VIEW_DISCOVER_INTERVAL", 10*time.Second),
		ViewReadBackoff:      envDur("VIEW_READ_BACKOFF", 5*time.Second),
	}
}

// splitList parses a comma-separated list, trimming whitespace around each
// element.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

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
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
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

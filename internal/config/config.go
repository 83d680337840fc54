// Package config collects the handful of environment-driven settings the
// daemon needs at startup, the way the teacher binary's own env() helper
// and flat list of env-var reads does, rather than a flag/viper framework
// this single-process daemon has no real need for.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is every environment-tunable setting topicsyncd reads at startup.
type Config struct {
	Env      string // "dev" enables pretty console logging
	HTTPAddr string

	FlushInterval time.Duration // non-stateful topic buffer flush cadence
	MaxCascadeDepth int

	RateLimitPerSecond float64
	RateLimitBurst     int

	CORSAllowedOrigins []string
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// Load reads Config from the process environment, filling in defaults for
// anything unset.
func Load() Config {
	return Config{
		Env:                env("ENV", ""),
		HTTPAddr:            env("HTTP_ADDR", ":8080"),
		FlushInterval:       time.Duration(envInt("FLUSH_INTERVAL_MS", 200)) * time.Millisecond,
		MaxCascadeDepth:     envInt("MAX_CASCADE_DEPTH", 10000),
		RateLimitPerSecond:  envFloat("RATE_LIMIT_PER_SECOND", 50),
		RateLimitBurst:      envInt("RATE_LIMIT_BURST", 100),
		CORSAllowedOrigins:  splitCSV(env("CORS_ALLOWED_ORIGINS", "*")),
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

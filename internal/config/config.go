package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL  string
	RedisURL     string
	KafkaBrokers string
	Port         string

	SweepConcurrency int
	SettleTimeout    time.Duration

	AutoWithdrawal              bool
	MinimumAutoWithdrawalAmount int64
}

func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8084"
	}

	return &Config{
		DatabaseURL:                 os.Getenv("DATABASE_URL"),
		RedisURL:                    os.Getenv("REDIS_URL"),
		KafkaBrokers:                os.Getenv("KAFKA_BROKERS"),
		Port:                        port,
		SweepConcurrency:            envInt("SWEEP_CONCURRENCY", 4),
		SettleTimeout:               envDuration("SETTLE_TIMEOUT", 30*time.Second),
		AutoWithdrawal:              envBool("AUTO_WITHDRAWAL", false),
		MinimumAutoWithdrawalAmount: envInt64("MIN_AUTO_WITHDRAWAL_AMOUNT", 100_000),
	}
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return v
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil {
			return v
		}
	}
	return fallback
}

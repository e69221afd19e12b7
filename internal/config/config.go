package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// defaultInviteExpiry is the campaign-end date stamped on generated invites
// when INVITE_EXPIRY is not set.
const defaultInviteExpiry = "2025-12-31T23:59:59Z"

type Config struct {
	Port           string
	DBPath         string
	SeedFile       string
	AdminPassword  string
	InviteExpiry   time.Time
	RateLimitRPS   float64
	RateLimitBurst int
	GinMode        string
}

func Load() *Config {
	// Reason: local development keeps secrets in .env; absence is fine
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("failed to load .env file")
	}

	return &Config{
		Port:           envOrDefault("PORT", "8080"),
		DBPath:         envOrDefault("DB_PATH", "/data/housewarming.db"),
		SeedFile:       os.Getenv("SEED_FILE"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		InviteExpiry:   envOrDefaultTime("INVITE_EXPIRY", defaultInviteExpiry),
		RateLimitRPS:   envOrDefaultFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst: envOrDefaultInt("RATE_LIMIT_BURST", 10),
		GinMode:        envOrDefault("GIN_MODE", "release"),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envOrDefaultTime(key, fallback string) time.Time {
	v := os.Getenv(key)
	if v == "" {
		v = fallback
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("invalid timestamp, using default expiry")
		t, _ = time.Parse(time.RFC3339, defaultInviteExpiry)
	}
	return t
}

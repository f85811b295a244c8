package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// PlaceholderSecret is the value shipped in .env.example. Starting with it
// (or with no secret at all) is a fatal misconfiguration.
const PlaceholderSecret = "change-me"

// Config holds all environment-derived settings.
type Config struct {
	Port        int
	DatabaseURL string

	JWTSecret      string
	AccessTokenTTL int // seconds
	RefreshTTL     int // seconds

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string

	AllowedOrigins []string

	PlanCatalogPath string
}

// Load reads configuration from the environment. A .env file is loaded
// first when present so local development matches deployment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           envInt("PORT", 8080),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AccessTokenTTL: envInt("ACCESS_TOKEN_TTL_SECONDS", 900),
		RefreshTTL:     envInt("REFRESH_TOKEN_TTL_SECONDS", 30*24*3600),

		RedisAddr:     envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		RazorpayKeyID:         os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),

		PlanCatalogPath: os.Getenv("PLAN_CATALOG_PATH"),
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if err := checkSecret("JWT_SECRET", cfg.JWTSecret); err != nil {
		return nil, err
	}
	if err := checkSecret("RAZORPAY_WEBHOOK_SECRET", cfg.RazorpayWebhookSecret); err != nil {
		return nil, err
	}

	return cfg, nil
}

// checkSecret enforces the startup invariant that signing and webhook
// secrets are set and not left at the placeholder value.
func checkSecret(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s environment variable is required", name)
	}
	if value == PlaceholderSecret {
		return fmt.Errorf("%s must not be the placeholder value %q", name, PlaceholderSecret)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

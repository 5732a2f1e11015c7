package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	WAPhoneNumberID string
	WAAccessToken   string
	WAVerifyToken   string
	WAAppSecret     string
	WAAPIVersion    string
	WAAPIBaseURL    string

	ShopName string
	Port     string
	DataDir  string

	SendTimeout        time.Duration
	StoreTimeout       time.Duration
	SessionRetention   time.Duration
	CleanupSchedule    string
	RateLimitPerMinute int
}

func Load() (*Config, error) {
	// .env is optional; env vars may already be set (e.g. in production)
	_ = godotenv.Load()

	cfg := &Config{
		WAPhoneNumberID: os.Getenv("WA_PHONE_NUMBER_ID"),
		WAAccessToken:   os.Getenv("WA_ACCESS_TOKEN"),
		WAVerifyToken:   os.Getenv("WA_VERIFY_TOKEN"),
		WAAppSecret:     os.Getenv("WA_APP_SECRET"),
		WAAPIVersion:    envOr("WA_API_VERSION", "v21.0"),
		WAAPIBaseURL:    envOr("WA_API_BASE_URL", "https://graph.facebook.com"),
		ShopName:        envOr("SHOP_NAME", "Lavadero"),
		Port:            envOr("PORT", "8080"),
		DataDir:         envOr("DATA_DIR", "."),
		CleanupSchedule: envOr("CLEANUP_SCHEDULE", "@every 30m"),
	}

	var err error
	if cfg.SendTimeout, err = durationEnv("WA_SEND_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = durationEnv("STORE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionRetention, err = durationEnv("SESSION_RETENTION", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = intEnv("RATE_LIMIT_PER_MINUTE", 20); err != nil {
		return nil, err
	}

	if cfg.WAVerifyToken == "" {
		token, err := randomHex(16)
		if err != nil {
			return nil, fmt.Errorf("generating verify token: %w", err)
		}
		cfg.WAVerifyToken = token
	}

	for _, req := range []struct {
		name, val string
	}{
		{"WA_PHONE_NUMBER_ID", cfg.WAPhoneNumberID},
		{"WA_ACCESS_TOKEN", cfg.WAAccessToken},
	} {
		if req.val == "" {
			return nil, fmt.Errorf("required env var %s is not set", req.name)
		}
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("env var %s: invalid duration %q", key, v)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("env var %s: %w", key, err)
	}
	return n, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

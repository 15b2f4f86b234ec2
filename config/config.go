package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the process reads from the environment.
type Config struct {
	Port        string
	DatabaseURL string

	// Collaborator endpoints. Empty values switch in the development
	// fallbacks: query-token identity and a logged no-op payment gateway.
	AuthVerifyURL string
	PaymentURL    string

	DrawInterval time.Duration
	EvictDelay   time.Duration
}

// Load reads .env (if present) and the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] No .env file found, reading environment variables")
	}

	return Config{
		Port:          getenv("PORT", "4000"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		AuthVerifyURL: os.Getenv("AUTH_VERIFY_URL"),
		PaymentURL:    os.Getenv("PAYMENT_URL"),
		DrawInterval:  getenvDuration("DRAW_INTERVAL_SECONDS", 5*time.Second),
		EvictDelay:    getenvDuration("ROOM_EVICT_SECONDS", 5*time.Minute),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		log.Printf("[WARN] ignoring invalid %s=%q", key, v)
		return fallback
	}
	return time.Duration(secs) * time.Second
}

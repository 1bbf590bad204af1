package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Port           int
	Env            string
	DatabaseURL    string
	RedisAddr      string
	EventsChannel  string
	RateLimit      int // frames per second per connection
	AllowedOrigins []string
	SendQueueSize  int
}

// Local reports whether the server runs in a developer environment.
func (c Config) Local() bool {
	return c.Env == "local"
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load reads the environment. A .env file in the working directory is loaded
// first when present.
func Load() (Config, error) {
	cfg := Config{
		Env:            getEnv("APP_ENV", "local"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		EventsChannel:  getEnv("EVENTS_CHANNEL", "blackjack:events"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}

	var err error
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit, err = getInt("RATE_LIMIT_PER_SEC", 10); err != nil {
		return Config{}, err
	}
	if cfg.SendQueueSize, err = getInt("SEND_QUEUE_SIZE", 32); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("INVALID_CONFIG: %s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

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

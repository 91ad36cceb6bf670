package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Addr          string
		SessionSecret string
	}

	SMTP struct {
		Host        string
		Port        int
		Username    string
		Password    string
		From        string
		NoVerify    bool
		IdleTimeout time.Duration
	}

	ChatWebhookURL string

	Push struct {
		VAPIDPublicKey  string
		VAPIDPrivateKey string
		Subscriber      string
	}

	Log struct {
		Format string
	}
}

// Load reads configuration from environment variables with defaults.
// DATABASE_URL is the only required setting.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.HTTP.Addr = ":" + getEnv("PORT", "8080")
	cfg.HTTP.SessionSecret = getEnv("SESSION_SECRET", "change-me-in-production")

	cfg.SMTP.Host = os.Getenv("SMTP_HOST")
	cfg.SMTP.Port = getEnvInt("SMTP_PORT", 25)
	cfg.SMTP.Username = os.Getenv("SMTP_USERNAME")
	cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	cfg.SMTP.From = getEnv("SMTP_FROM", "alerts@localhost")
	cfg.SMTP.NoVerify = os.Getenv("SMTP_NO_VERIFY") == "true"
	cfg.SMTP.IdleTimeout = time.Duration(getEnvInt("SMTP_IDLE_TIMEOUT_SECONDS", 30)) * time.Second

	cfg.ChatWebhookURL = os.Getenv("CHAT_WEBHOOK_URL")

	cfg.Push.VAPIDPublicKey = os.Getenv("VAPID_PUBLIC_KEY")
	cfg.Push.VAPIDPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
	cfg.Push.Subscriber = getEnv("VAPID_SUBSCRIBER", "mailto:admin@example.com")

	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// SMTPEnabled reports whether the email transport is configured at all.
func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Host != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

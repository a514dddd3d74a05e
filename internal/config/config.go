package config

import (
	"fmt"
	"os"
	"strconv"

	appErrors "github.com/apexcrm/campaign-manager/internal/errors"
)

type Config struct {
	ListenAddr       string
	WorkerListenAddr string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// Empty AMQPURL runs the server broker-less with the in-memory queue
	// and an in-process consumer.
	AMQPURL   string
	QueueName string
	Prefetch  int

	SendSuccessRate float64
}

// Load reads configuration from the environment. Call godotenv.Load first
// if a .env file should be honored.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:       getenv("LISTEN_ADDR", ":8080"),
		WorkerListenAddr: getenv("WORKER_LISTEN_ADDR", ":9090"),
		DBUser:           getenv("DB_USER", "postgres"),
		DBPassword:       os.Getenv("DB_PASSWORD"),
		DBHost:           getenv("DB_HOST", "localhost"),
		DBPort:           getenv("DB_PORT", "5432"),
		DBName:           getenv("DB_NAME", "campaign_manager"),
		AMQPURL:          os.Getenv("AMQP_URL"),
		QueueName:        getenv("QUEUE_NAME", "campaign_dispatch"),
	}

	var err error
	if cfg.Prefetch, err = getint("QUEUE_PREFETCH", 10); err != nil {
		return nil, err
	}
	rate := getenv("SEND_SUCCESS_RATE", "0.9")
	cfg.SendSuccessRate, err = strconv.ParseFloat(rate, 64)
	if err != nil || cfg.SendSuccessRate < 0 || cfg.SendSuccessRate > 1 {
		return nil, appErrors.NewValidation("SEND_SUCCESS_RATE must be a number in [0,1], got %q", rate)
	}
	return cfg, nil
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, appErrors.NewValidation("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

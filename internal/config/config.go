// Package config loads settings from the environment, with an optional
// .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store backend names.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendBigQuery = "bigquery"
)

// Config holds every runtime setting.
type Config struct {
	// HTTP server
	Port string

	// Store backend
	Backend         string
	SQLitePath      string
	BigQueryProject string
	BigQueryDataset string

	// Generative AI
	GeminiModel string

	// AMQP refresh signals (optional; empty URL disables publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Report export
	GCSBucket string

	// Utterance workers
	QueueWorkers int
	QueueBuffer  int
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port: getEnv("PORT", "8080"),

		Backend:         getEnv("STORE_BACKEND", BackendSQLite),
		SQLitePath:      getEnv("SQLITE_DB_PATH", "./data/assistant.db"),
		BigQueryProject: getEnv("BIGQUERY_PROJECT", ""),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", "assistant"),

		GeminiModel: getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "assistant"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ui_refresh"),

		GCSBucket: getEnv("GCS_BUCKET", ""),

		QueueWorkers: getEnvInt("QUEUE_WORKERS", 4),
		QueueBuffer:  getEnvInt("QUEUE_BUFFER", 64),
	}
}

// Validate returns an error describing every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port %q: must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLitePath == "" {
			problems = append(problems, "SQLITE_DB_PATH cannot be empty with the sqlite backend")
		}
	case BackendBigQuery:
		if c.BigQueryProject == "" {
			problems = append(problems, "BIGQUERY_PROJECT is required with the bigquery backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid store backend %q: must be one of %s, %s, %s",
			c.Backend, BackendMemory, BackendSQLite, BackendBigQuery))
	}

	if c.QueueWorkers < 1 {
		problems = append(problems, fmt.Sprintf("QUEUE_WORKERS must be at least 1, got %d", c.QueueWorkers))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Backend names accepted by DATA_BACKEND
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

var validBackends = []string{BackendMemory, BackendSQLite, BackendMongo}

type Config struct {
	// HTTP Server
	Port        string
	SelfBaseURL string

	// Storage
	DataBackend   string
	SQLiteDBPath  string
	MongoURI      string
	MongoDatabase string

	// AMQP. Empty URL keeps sync jobs in-process.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Tink
	TinkBaseURL       string
	TinkLinkURL       string
	TinkClientID      string
	TinkClientSecret  string
	TinkActorClientID string
	TinkRedirectURI   string
	TinkMarket        string
	TinkLocale        string

	// Sync
	SyncPageCount  int
	SyncWorkers    int
	SyncQueueSize  int
	SyncMaxRetries int

	// Caches
	TokenCacheTTL time.Duration
	SessionTTL    time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		SelfBaseURL: getEnv("SELF_BASE_URL", "http://localhost:8080"),

		DataBackend:   getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/ecobud.db"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "ecobud-dev"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ecobud"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_transactions"),

		TinkBaseURL:       getEnv("TINK_BASE_URL", "https://api.tink.com"),
		TinkLinkURL:       getEnv("TINK_LINK_URL", "https://link.tink.com"),
		TinkClientID:      getEnv("TINK_CLIENT_ID", ""),
		TinkClientSecret:  getEnv("TINK_CLIENT_SECRET", ""),
		TinkActorClientID: getEnv("TINK_ACTOR_CLIENT_ID", "df05e4b379934cd09963197cc855bfe9"),
		TinkRedirectURI:   getEnv("TINK_REDIRECT_URI", "https://console.tink.com/callback"),
		TinkMarket:        getEnv("TINK_MARKET", "GB"),
		TinkLocale:        getEnv("TINK_LOCALE", "en_US"),

		SyncPageCount:  getEnvInt("SYNC_PAGE_COUNT", 1),
		SyncWorkers:    getEnvInt("SYNC_WORKERS", 4),
		SyncQueueSize:  getEnvInt("SYNC_QUEUE_SIZE", 100),
		SyncMaxRetries: getEnvInt("SYNC_MAX_RETRIES", 2),

		TokenCacheTTL: getEnvDuration("TOKEN_CACHE_TTL", 10*time.Minute),
		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// UsesAMQP reports whether sync jobs go through the message broker
func (c *Config) UsesAMQP() bool {
	return c.AMQPURL != ""
}

// SecureCookies reports whether session cookies need the Secure flag
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.SelfBaseURL, "https://")
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == BackendMongo {
		if parsedURL, err := url.Parse(c.MongoURI); err != nil || c.MongoURI == "" {
			errors = append(errors, fmt.Sprintf("invalid Mongo URI '%s'", c.MongoURI))
		} else if parsedURL.Scheme != "mongodb" && parsedURL.Scheme != "mongodb+srv" {
			errors = append(errors, fmt.Sprintf("invalid Mongo URI scheme '%s': must be 'mongodb' or 'mongodb+srv'", parsedURL.Scheme))
		}
		if c.MongoDatabase == "" {
			errors = append(errors, "Mongo database name cannot be empty when using mongo backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if parsedURL, err := url.Parse(c.TinkBaseURL); err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid Tink base URL '%s'", c.TinkBaseURL))
	}
	if parsedURL, err := url.Parse(c.SelfBaseURL); err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid self base URL '%s'", c.SelfBaseURL))
	}

	if c.SyncPageCount < 1 || c.SyncPageCount > 50 {
		errors = append(errors, fmt.Sprintf("invalid sync page count %d: must be between 1 and 50", c.SyncPageCount))
	}
	if c.SyncWorkers < 1 || c.SyncWorkers > 64 {
		errors = append(errors, fmt.Sprintf("invalid sync workers %d: must be between 1 and 64", c.SyncWorkers))
	}
	if c.SyncQueueSize < 1 || c.SyncQueueSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid sync queue size %d: must be between 1 and 10000", c.SyncQueueSize))
	}
	if c.SyncMaxRetries < 0 || c.SyncMaxRetries > 10 {
		errors = append(errors, fmt.Sprintf("invalid sync max retries %d: must be between 0 and 10", c.SyncMaxRetries))
	}

	if c.TokenCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid token cache TTL %v: must be at least 1 second", c.TokenCacheTTL))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

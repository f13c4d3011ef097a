// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported document store backends.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	HTTPAddr           string        `mapstructure:"HTTP_ADDR"`
	Services           []string      `mapstructure:"SERVICES"`
	StoreDriver        string        `mapstructure:"STORE_DRIVER"`
	MongoURI           string        `mapstructure:"MONGO_URI"`
	MongoDatabase      string        `mapstructure:"MONGO_DATABASE"`
	DBURL              string        `mapstructure:"DB_URL"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout    time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	MaxBodyBytes       int64         `mapstructure:"MAX_BODY_BYTES"`
	CORSAllowedOrigins []string      `mapstructure:"CORS_ALLOWED_ORIGINS"`
	GithubToken        string        `mapstructure:"GITHUB_TOKEN"`
	ReposToSync        []string      `mapstructure:"REPOS_TO_SYNC"`
	SyncInterval       time.Duration `mapstructure:"SYNC_INTERVAL"`
	SyncConcurrency    int           `mapstructure:"SYNC_CONCURRENCY"`
	SyncSince          string        `mapstructure:"SYNC_SINCE"`
	SyncSinceTime      time.Time     `mapstructure:"-"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_ADDR", ":3000")
	v.SetDefault("SERVICES", []string{"all"})
	v.SetDefault("STORE_DRIVER", DriverMongo)
	v.SetDefault("MONGO_URI", "mongodb://127.0.0.1:27017")
	v.SetDefault("MONGO_DATABASE", "gitHub_Task")
	v.SetDefault("DB_URL", "")
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("MAX_BODY_BYTES", 1<<20)
	v.SetDefault("CORS_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("GITHUB_TOKEN", "")
	v.SetDefault("REPOS_TO_SYNC", []string{})
	v.SetDefault("SYNC_INTERVAL", "0s")
	v.SetDefault("SYNC_CONCURRENCY", 5)
	v.SetDefault("SYNC_SINCE", "")

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is a required configuration field when STORE_DRIVER is mongo")
		}
		if c.MongoDatabase == "" {
			return errors.New("MONGO_DATABASE is a required configuration field when STORE_DRIVER is mongo")
		}
	case DriverPostgres:
		if c.DBURL == "" {
			return errors.New("DB_URL is a required configuration field when STORE_DRIVER is postgres")
		}
	default:
		return errors.New("STORE_DRIVER must be one of: mongo, postgres")
	}

	if c.HTTPAddr == "" {
		return errors.New("HTTP_ADDR is a required configuration field")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("MAX_BODY_BYTES must be positive")
	}
	if c.SyncConcurrency <= 0 {
		return errors.New("SYNC_CONCURRENCY must be positive")
	}

	if c.SyncSince != "" {
		parsedTime, err := time.Parse(time.RFC3339, c.SyncSince)
		if err != nil {
			return errors.New("SYNC_SINCE must be in RFC3339 format (e.g. 2023-01-01T00:00:00Z)")
		}
		c.SyncSinceTime = parsedTime
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

// Database holds the PostgreSQL settings
type Database struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Config holds all configuration for the application
type Config struct {
	GitLabURL         string
	LogLevel          string
	HTTPAddr          string
	SyncWorkers       int
	SyncInterval      time.Duration
	MergeRequestState string
	DiffConcurrency   int
	Database          Database
}

// NewConfig creates a new Config instance
func NewConfig() *Config {
	return &Config{}
}

func setDefaults() {
	viper.SetDefault("GITLAB_URL", "https://gitlab.com")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("SYNC_WORKERS", 4)
	viper.SetDefault("SYNC_INTERVAL", "0s")
	viper.SetDefault("MERGE_REQUEST_STATE", "all")
	viper.SetDefault("DIFF_CONCURRENCY", 4)

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", "5432")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 25)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
}

// Load loads configuration from the env file, if present, and the environment
func (c *Config) Load(envFile string) error {
	setDefaults()
	viper.AutomaticEnv()

	if envFile != "" {
		viper.SetConfigFile(envFile)
		viper.SetConfigType("env")
		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	c.GitLabURL = viper.GetString("GITLAB_URL")
	c.LogLevel = viper.GetString("LOG_LEVEL")
	c.HTTPAddr = viper.GetString("HTTP_ADDR")
	c.SyncWorkers = viper.GetInt("SYNC_WORKERS")
	c.SyncInterval = viper.GetDuration("SYNC_INTERVAL")
	c.MergeRequestState = viper.GetString("MERGE_REQUEST_STATE")
	c.DiffConcurrency = viper.GetInt("DIFF_CONCURRENCY")

	c.Database = Database{
		Host:            viper.GetString("POSTGRES_HOST"),
		Port:            viper.GetString("POSTGRES_PORT"),
		User:            viper.GetString("POSTGRES_USER"),
		Password:        viper.GetString("POSTGRES_PASSWORD"),
		Name:            viper.GetString("POSTGRES_DB"),
		SSLMode:         viper.GetString("POSTGRES_SSLMODE"),
		MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
	}

	return c.validate()
}

func (c *Config) validate() error {
	if c.Database.User == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("POSTGRES_DB is required")
	}

	switch c.MergeRequestState {
	case "opened", "merged", "closed", "all":
	default:
		return fmt.Errorf("invalid MERGE_REQUEST_STATE %q", c.MergeRequestState)
	}

	if c.SyncWorkers <= 0 {
		return fmt.Errorf("SYNC_WORKERS must be positive, got %d", c.SyncWorkers)
	}
	if c.DiffConcurrency <= 0 {
		return fmt.Errorf("DIFF_CONCURRENCY must be positive, got %d", c.DiffConcurrency)
	}
	if c.SyncInterval < 0 {
		return fmt.Errorf("SYNC_INTERVAL cannot be negative")
	}
	return nil
}

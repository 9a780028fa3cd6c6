// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// server mode, chat behavior, model paths, and rate limiting.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/unklab-dev/kampusbot-go/internal/stringutil"
)

// Response selection policies for intents with multiple responses.
const (
	ResponsePolicyFirst  = "first"
	ResponsePolicyRandom = "random"
)

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	InstanceID      string

	// Data Configuration
	DataDir      string // Directory for the SQLite chat log database
	DatasetPath  string // Path to the intent dataset JSON file
	HandbookPath string // Path to the student handbook text file
	ModelDir     string // Directory holding trained model artifacts

	// Chat Configuration
	ConfidenceThreshold float64 // Below this the dispatcher falls back to handbook search
	ResponsePolicy      string  // "first" or "random"
	SessionTTL          time.Duration
	PersonalizationSeed int64 // 0 seeds from the wall clock

	// Model Configuration
	KNeighbors     int
	NGramMin       int
	NGramMax       int
	MaxFeatures    int
	MaxDocFraction float64

	// Normalizer Configuration
	RemoveStopwords bool
	ApplyStemming   bool

	// Rate Limits (Token Bucket Algorithm)
	GlobalRateLimitRPS        float64
	UserRateLimitBurst        float64
	UserRateLimitRefillPerSec float64

	// S3 Snapshot Configuration (embedded)
	S3 S3Config

	// Sentry Configuration (embedded)
	Sentry SentryConfig

	// Better Stack Configuration
	BetterStackEnabled  bool
	BetterStackToken    string
	BetterStackEndpoint string

	// Metrics Authentication
	MetricsAuthEnabled bool
	MetricsUsername    string
	MetricsPassword    string
}

// S3Config holds S3-compatible object storage settings for model snapshots.
type S3Config struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	ModelKey        string
}

// SentryConfig holds Sentry error tracking settings.
type SentryConfig struct {
	Enabled     bool
	DSN         string
	Environment string
	Release     string
	SampleRate  float64
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		// Server Configuration
		Port:            getEnv(EnvPort, "8080"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, 30*time.Second),
		InstanceID:      getEnv(EnvInstanceID, ""),

		// Data Configuration
		DataDir:      getEnv(EnvDataDir, "./data"),
		DatasetPath:  getEnv(EnvDatasetPath, "./data/dataset.json"),
		HandbookPath: getEnv(EnvHandbookPath, "./data/handbook.txt"),
		ModelDir:     getEnv(EnvModelDir, "./data/model"),

		// Chat Configuration
		ConfidenceThreshold: getFloatEnv(EnvConfidenceThreshold, 0.25),
		ResponsePolicy:      getEnv(EnvResponsePolicy, ResponsePolicyFirst),
		SessionTTL:          getDurationEnv(EnvSessionTTL, 30*time.Minute),
		PersonalizationSeed: int64(getIntEnv(EnvPersonalizationSeed, 0)),

		// Model Configuration
		KNeighbors:     getIntEnv(EnvKNeighbors, 1),
		NGramMin:       getIntEnv(EnvNGramMin, 1),
		NGramMax:       getIntEnv(EnvNGramMax, 7),
		MaxFeatures:    getIntEnv(EnvMaxFeatures, 2500),
		MaxDocFraction: getFloatEnv(EnvMaxDocFraction, 0.8),

		// Normalizer Configuration
		RemoveStopwords: getBoolEnv(EnvRemoveStopwords, false),
		ApplyStemming:   getBoolEnv(EnvApplyStemming, false),

		// Rate Limits
		GlobalRateLimitRPS:        getFloatEnv(EnvGlobalRateRPS, 100.0),
		UserRateLimitBurst:        getFloatEnv(EnvUserRateBurst, 15.0),
		UserRateLimitRefillPerSec: getFloatEnv(EnvUserRateRefill, 0.5),

		// S3 Snapshot Configuration
		S3: S3Config{
			Enabled:         getBoolEnv(EnvS3Enabled, false),
			Endpoint:        getEnv(EnvS3Endpoint, ""),
			AccessKeyID:     getEnv(EnvS3AccessKeyID, ""),
			SecretAccessKey: getEnv(EnvS3SecretAccessKey, ""),
			BucketName:      getEnv(EnvS3BucketName, ""),
			ModelKey:        getEnv(EnvS3ModelKey, "model/artifacts.zst"),
		},

		// Sentry Configuration
		Sentry: SentryConfig{
			Enabled:     getBoolEnv(EnvSentryEnabled, false),
			DSN:         getEnv(EnvSentryDSN, ""),
			Environment: getEnv(EnvSentryEnvironment, "production"),
			Release:     getEnv(EnvSentryRelease, ""),
			SampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),
		},

		// Better Stack Configuration
		BetterStackEnabled:  getBoolEnv(EnvBetterStackEnabled, false),
		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		// Metrics Authentication
		MetricsAuthEnabled: getBoolEnv(EnvMetricsAuthEnabled, false),
		MetricsUsername:    getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword:    getEnv(EnvMetricsPassword, ""),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New(EnvPort+" is required"))
	} else if !stringutil.IsNumeric(c.Port) {
		errs = append(errs, fmt.Errorf("%s must be numeric, got %q", EnvPort, c.Port))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New(EnvDataDir+" is required"))
	}
	if c.DatasetPath == "" {
		errs = append(errs, errors.New(EnvDatasetPath+" is required"))
	}
	if c.ModelDir == "" {
		errs = append(errs, errors.New(EnvModelDir+" is required"))
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("%s must be in [0, 1], got %v", EnvConfidenceThreshold, c.ConfidenceThreshold))
	}
	if c.ResponsePolicy != ResponsePolicyFirst && c.ResponsePolicy != ResponsePolicyRandom {
		errs = append(errs, fmt.Errorf("%s must be %q or %q, got %q",
			EnvResponsePolicy, ResponsePolicyFirst, ResponsePolicyRandom, c.ResponsePolicy))
	}
	if c.KNeighbors < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", EnvKNeighbors, c.KNeighbors))
	}
	if c.NGramMin < 1 || c.NGramMax < c.NGramMin {
		errs = append(errs, fmt.Errorf("%s..%s must form a valid range, got %d..%d",
			EnvNGramMin, EnvNGramMax, c.NGramMin, c.NGramMax))
	}
	if c.MaxFeatures < 1 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvMaxFeatures, c.MaxFeatures))
	}
	if c.MaxDocFraction <= 0 || c.MaxDocFraction > 1 {
		errs = append(errs, fmt.Errorf("%s must be in (0, 1], got %v", EnvMaxDocFraction, c.MaxDocFraction))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvSessionTTL, c.SessionTTL))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvShutdownTimeout, c.ShutdownTimeout))
	}
	if c.GlobalRateLimitRPS <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvGlobalRateRPS, c.GlobalRateLimitRPS))
	}
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, errors.New(EnvS3Endpoint+" is required when S3 is enabled"))
		}
		if c.S3.AccessKeyID == "" {
			errs = append(errs, errors.New(EnvS3AccessKeyID+" is required when S3 is enabled"))
		}
		if c.S3.SecretAccessKey == "" {
			errs = append(errs, errors.New(EnvS3SecretAccessKey+" is required when S3 is enabled"))
		}
		if c.S3.BucketName == "" {
			errs = append(errs, errors.New(EnvS3BucketName+" is required when S3 is enabled"))
		}
	}
	if c.Sentry.Enabled && c.Sentry.DSN == "" {
		errs = append(errs, errors.New(EnvSentryDSN+" is required when Sentry is enabled"))
	}
	if c.BetterStackEnabled && c.BetterStackToken == "" {
		errs = append(errs, errors.New(EnvBetterStackToken+" is required when Better Stack is enabled"))
	}
	if c.MetricsAuthEnabled && c.MetricsPassword == "" {
		errs = append(errs, errors.New(EnvMetricsPassword+" is required when metrics auth is enabled"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SQLitePath returns the full path to the SQLite chat log database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "chatlog.db")
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

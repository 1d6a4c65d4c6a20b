package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the client's configuration
type Config struct {
	APIBaseURL          string        `mapstructure:"API_BASE_URL"`
	WSBaseURL           string        `mapstructure:"WS_BASE_URL"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	StatePath           string        `mapstructure:"STATE_PATH"`
	HTTPTimeout         time.Duration `mapstructure:"HTTP_TIMEOUT"`
	WSDialTimeout       time.Duration `mapstructure:"WS_DIAL_TIMEOUT"`
	SendSettleDelay     time.Duration `mapstructure:"SEND_SETTLE_DELAY"`
	PendingQueueSize    int           `mapstructure:"PENDING_QUEUE_SIZE"`
	DedupCacheSize      int           `mapstructure:"DEDUP_CACHE_SIZE"`
	IncludeTables       bool          `mapstructure:"INCLUDE_TABLES"`
	IncludeGraphs       bool          `mapstructure:"INCLUDE_GRAPHS"`
	PreferredGraphTypes []string      `mapstructure:"PREFERRED_GRAPH_TYPES"`
	MaxTables           int           `mapstructure:"MAX_TABLES"`
	MaxGraphs           int           `mapstructure:"MAX_GRAPHS"`
}

func Load(logger *zap.Logger) *Config {
	var config Config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")        // For running locally
	viper.AddConfigPath("../")      // For running from a subdir
	viper.AddConfigPath("./config") // Common config folder
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("API_BASE_URL", "http://localhost:8000")
	viper.SetDefault("WS_BASE_URL", "ws://localhost:8000")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("STATE_PATH", "")
	viper.SetDefault("HTTP_TIMEOUT", 30)
	viper.SetDefault("WS_DIAL_TIMEOUT", 10)
	viper.SetDefault("SEND_SETTLE_DELAY", 500)
	viper.SetDefault("PENDING_QUEUE_SIZE", 16)
	viper.SetDefault("DEDUP_CACHE_SIZE", 512)
	viper.SetDefault("INCLUDE_TABLES", true)
	viper.SetDefault("INCLUDE_GRAPHS", true)
	viper.SetDefault("PREFERRED_GRAPH_TYPES", []string{"line", "bar"})
	viper.SetDefault("MAX_TABLES", 3)
	viper.SetDefault("MAX_GRAPHS", 2)

	if err := viper.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Debug("Could not read config file, using defaults/env vars", zap.Error(err))
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		// Config unmarshaling is critical - fail fast during bootstrap
		if logger != nil {
			logger.Fatal("Unable to decode config into struct", zap.Error(err))
		} else {
			// Fallback if logger not available (should not happen in practice)
			fmt.Fprintf(os.Stderr, "FATAL: Unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}

	// A trailing slash on either base URL breaks path joining downstream.
	config.APIBaseURL = strings.TrimRight(strings.TrimSpace(config.APIBaseURL), "/")
	config.WSBaseURL = strings.TrimRight(strings.TrimSpace(config.WSBaseURL), "/")

	// Convert seconds/milliseconds to proper time.Duration
	config.HTTPTimeout = config.HTTPTimeout * time.Second
	config.WSDialTimeout = config.WSDialTimeout * time.Second
	config.SendSettleDelay = config.SendSettleDelay * time.Millisecond

	return &config
}

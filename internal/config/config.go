// Package config loads the process-wide configuration record at startup,
// the way an annotation-driven configuration bean maps onto a plain struct
// loaded by value (§9). Values come from environment variables (prefix
// LOGFORGE_) and an optional config file, read through spf13/viper — the
// configuration library the rest of the retrieval pack (gardener/gardener)
// reaches for; the teacher itself has no config-file concern beyond cobra
// flags, so this is an enrichment rather than a substitution.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully-resolved, load-once-at-startup configuration record
// (§6 "Configuration keys").
type Config struct {
	FileMaxSize     int64    `mapstructure:"file-max-size"`
	FileAllowedExts []string `mapstructure:"file-allowed-types"`

	ProcessingBatchSize      int `mapstructure:"processing-batch-size"`
	ProcessingBufferSize     int `mapstructure:"processing-buffer-size"`
	ProcessingThreadCore     int `mapstructure:"processing-thread-pool-core-size"`
	ProcessingThreadMax      int `mapstructure:"processing-thread-pool-max-size"`
	ProcessingRetentionDays  int `mapstructure:"processing-retention-days"`

	StoreURLs           []string      `mapstructure:"store-urls"`
	StoreConnectTimeout time.Duration `mapstructure:"store-connect-timeout"`
	StoreSocketTimeout  time.Duration `mapstructure:"store-socket-timeout"`
	StoreUsername       string        `mapstructure:"store-username"`
	StorePassword       string        `mapstructure:"store-password"`
	StoreIndexPrefix    string        `mapstructure:"store-index-prefix"`

	ServerAddress      string        `mapstructure:"server-address"`
	ServerReadTimeout  time.Duration `mapstructure:"server-read-timeout"`
	ServerWriteTimeout time.Duration `mapstructure:"server-write-timeout"`
	ServerCORSOrigins  []string      `mapstructure:"server-cors-origins"`

	MaxExportRecords int `mapstructure:"max-export-records"`
}

// Default returns the documented defaults (§6/§5), prior to any
// environment/file overrides.
func Default() Config {
	return Config{
		FileMaxSize:     52_428_800,
		FileAllowedExts: []string{"log", "txt"},

		ProcessingBatchSize:     1_000,
		ProcessingBufferSize:    8_192,
		ProcessingThreadCore:    4,
		ProcessingThreadMax:     10,
		ProcessingRetentionDays: 30,

		StoreURLs:           []string{"http://localhost:9200"},
		StoreConnectTimeout: 5 * time.Second,
		StoreSocketTimeout:  30 * time.Second,
		StoreIndexPrefix:    "logforge",

		ServerAddress:      ":8080",
		ServerReadTimeout:  30 * time.Second,
		ServerWriteTimeout: 60 * time.Second,

		MaxExportRecords: 10_000,
	}
}

// Load builds a viper instance seeded with defaults, then layers in an
// optional config file (if configPath is non-empty) and environment
// variables prefixed LOGFORGE_ (e.g. LOGFORGE_SERVER_ADDRESS).
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("logforge")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("file-max-size", cfg.FileMaxSize)
	v.SetDefault("file-allowed-types", cfg.FileAllowedExts)
	v.SetDefault("processing-batch-size", cfg.ProcessingBatchSize)
	v.SetDefault("processing-buffer-size", cfg.ProcessingBufferSize)
	v.SetDefault("processing-thread-pool-core-size", cfg.ProcessingThreadCore)
	v.SetDefault("processing-thread-pool-max-size", cfg.ProcessingThreadMax)
	v.SetDefault("processing-retention-days", cfg.ProcessingRetentionDays)
	v.SetDefault("store-urls", cfg.StoreURLs)
	v.SetDefault("store-username", cfg.StoreUsername)
	v.SetDefault("store-password", cfg.StorePassword)
	v.SetDefault("store-connect-timeout", cfg.StoreConnectTimeout)
	v.SetDefault("store-socket-timeout", cfg.StoreSocketTimeout)
	v.SetDefault("store-index-prefix", cfg.StoreIndexPrefix)
	v.SetDefault("server-address", cfg.ServerAddress)
	v.SetDefault("server-read-timeout", cfg.ServerReadTimeout)
	v.SetDefault("server-write-timeout", cfg.ServerWriteTimeout)
	v.SetDefault("server-cors-origins", cfg.ServerCORSOrigins)
	v.SetDefault("max-export-records", cfg.MaxExportRecords)
}

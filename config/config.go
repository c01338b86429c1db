/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package config loads tablestore settings from a config file, a .env file
// and the environment.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/suparena/tablestore/errors"
)

const envPrefix = "TABLESTORE"

// Config holds all tablestore configuration
type Config struct {
	// Stage prefixes table names and drives backend selection, e.g. "dev".
	Stage string `mapstructure:"stage"`
	// Backend overrides stage-based backend selection when set.
	Backend        string `mapstructure:"backend"`
	TableSeparator string `mapstructure:"table_separator"`
	SchemaFile     string `mapstructure:"schema_file"`

	AWS   AWSConfig   `mapstructure:"aws"`
	Log   LogConfig   `mapstructure:"log"`
	Batch BatchConfig `mapstructure:"batch"`

	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string `mapstructure:"-"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Endpoint        string `mapstructure:"endpoint"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BatchConfig is the retry policy for unprocessed batch items.
type BatchConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
}

// Load reads configuration. A tablestore.{yaml,json} file and a .env file
// are looked up in each of paths and then the working directory; both are
// optional. Environment variables prefixed with TABLESTORE_ override file
// values, with STAGE/APP_ENV and DB_BACKEND accepted as aliases.
func Load(paths ...string) (*Config, error) {
	searchPaths := append(append([]string{}, paths...), ".")
	if err := loadDotEnv(searchPaths); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("tablestore")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("stage", envPrefix+"_STAGE", "STAGE", "APP_ENV"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("backend", envPrefix+"_BACKEND", "DB_BACKEND"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		TableSeparator: "-",
		AWS:            AWSConfig{Region: "us-east-1"},
		Log:            LogConfig{Level: "info", Format: "json"},
		Batch: BatchConfig{
			MaxRetries: 5,
			BaseDelay:  50 * time.Millisecond,
			MaxDelay:   2 * time.Second,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("stage", "")
	v.SetDefault("backend", "")
	v.SetDefault("table_separator", d.TableSeparator)
	v.SetDefault("schema_file", "")

	v.SetDefault("aws.region", d.AWS.Region)
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")
	v.SetDefault("aws.endpoint", "")

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("batch.max_retries", d.Batch.MaxRetries)
	v.SetDefault("batch.base_delay", d.Batch.BaseDelay)
	v.SetDefault("batch.max_delay", d.Batch.MaxDelay)
}

// loadDotEnv loads the first .env found. Variables already set in the
// environment are not overridden.
func loadDotEnv(paths []string) error {
	for _, p := range paths {
		file := filepath.Join(p, ".env")
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
		return nil
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Batch.MaxRetries < 0 {
		return errors.NewValidationError("batch.max_retries", "must not be negative")
	}
	if c.Batch.BaseDelay <= 0 {
		return errors.NewValidationError("batch.base_delay", "must be positive")
	}
	if c.Batch.MaxDelay < c.Batch.BaseDelay {
		return errors.NewValidationError("batch.max_delay", "must not be less than batch.base_delay")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return errors.NewValidationError("log.format", fmt.Sprintf("unknown log format %q", c.Log.Format))
	}
	return nil
}

// TableName returns the stage-prefixed name of a base table, e.g. "dev-users".
func (c *Config) TableName(base string) string {
	if c.Stage == "" {
		return base
	}
	return c.Stage + c.TableSeparator + base
}

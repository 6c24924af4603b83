package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tinytelemetry/etlq/internal/model"
)

const (
	defaultLogLevel = "info"
	envPrefix       = "ETLQ"
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	DataDir           string        `mapstructure:"data-dir" yaml:"data-dir"`
	SkipBadTimestamps bool          `mapstructure:"skip-bad-timestamps" yaml:"skip-bad-timestamps"`
	MaxLineSize       int           `mapstructure:"max-line-size" yaml:"max-line-size" validate:"gte=1024"`
	Prompt            string        `mapstructure:"prompt" yaml:"prompt" validate:"required"`
	SQLMirror         bool          `mapstructure:"sql-mirror" yaml:"sql-mirror"`
	QueryTimeout      time.Duration `mapstructure:"query-timeout" yaml:"query-timeout" validate:"gt=0"`
	APIAddr           string        `mapstructure:"api-addr" yaml:"api-addr" validate:"required,hostname_port"`
	OTLPEndpoint      string        `mapstructure:"otlp-endpoint" yaml:"otlp-endpoint" validate:"omitempty,hostname_port"`
	ServiceName       string        `mapstructure:"service-name" yaml:"service-name" validate:"required"`
	LogLevel          string        `mapstructure:"log-level" yaml:"log-level" validate:"oneof=trace debug info warn error disabled"`
	ConfigPath        string        `mapstructure:"-" yaml:"config-path,omitempty"` // not from config file
}

// configFlags are the command-line flags that override config keys.
var configFlags = []string{"data-dir", "skip-bad-timestamps", "api-addr", "otlp-endpoint", "log-level"}

func loadConfig(configPath string, flags *pflag.FlagSet) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("data-dir", "")
	v.SetDefault("skip-bad-timestamps", false)
	v.SetDefault("max-line-size", model.DefaultMaxLineSize)
	v.SetDefault("prompt", model.DefaultPrompt)
	v.SetDefault("sql-mirror", true)
	v.SetDefault("query-timeout", model.DefaultQueryTimeout)
	v.SetDefault("api-addr", model.DefaultAPIAddr)
	v.SetDefault("otlp-endpoint", "")
	v.SetDefault("service-name", model.DefaultServiceName)
	v.SetDefault("log-level", defaultLogLevel)

	if flags != nil {
		for _, name := range configFlags {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(name, f); err != nil {
					return cfg, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "etlq", "config.yml"))
	}

	configRead := true
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
		configRead = false
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if configRead {
		cfg.ConfigPath = v.ConfigFileUsed()
	}

	// Expand ~ in data-dir
	if strings.HasPrefix(cfg.DataDir, "~/") {
		cfg.DataDir = filepath.Join(home, cfg.DataDir[2:])
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Package config loads settings for the druguse binaries from defaults, an
// optional YAML file, DRUGUSE_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tinytelemetry/druguse/internal/model"
)

const (
	envPrefix       = "DRUGUSE"
	defaultHost     = "0.0.0.0"
	defaultPort     = 3000
	defaultKeepLast = 10
)

// Config is the merged runtime configuration.
type Config struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Addr         string        `mapstructure:"addr"`
	DBPath       string        `mapstructure:"db-path"`
	Driver       string        `mapstructure:"driver"`
	QueryTimeout time.Duration `mapstructure:"query-timeout"`
	LogFile      string        `mapstructure:"log-file"`

	CSVPath        string `mapstructure:"csv"`
	BatchSize      int    `mapstructure:"batch-size"`
	SnapshotDir    string `mapstructure:"snapshot-dir"`
	SnapshotBucket string `mapstructure:"snapshot-bucket"`
	KeepLast       int    `mapstructure:"keep-last"`
	S3Endpoint     string `mapstructure:"s3-endpoint"`
	S3Region       string `mapstructure:"s3-region"`
	S3AccessKey    string `mapstructure:"s3-access-key"`
	S3SecretKey    string `mapstructure:"s3-secret-key"`
	S3SessionToken string `mapstructure:"s3-session-token"`
	S3UseSSL       bool   `mapstructure:"s3-use-ssl"`

	ConfigPath string `mapstructure:"-"` // not from config file
}

// Load merges defaults, the config file, environment and flags. configPath
// may be empty, in which case ./druguse.yml is used when present. flags may be nil.
func Load(configPath string, flags *pflag.FlagSet) (Config, error) {
	var cfg Config

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("host", defaultHost)
	v.SetDefault("port", defaultPort)
	v.SetDefault("db-path", model.DefaultDBPath)
	v.SetDefault("driver", model.DefaultDriver)
	v.SetDefault("query-timeout", model.DefaultQueryTimeout)
	v.SetDefault("csv", model.DefaultCSVPath)
	v.SetDefault("batch-size", model.DefaultBatchSize)
	v.SetDefault("keep-last", defaultKeepLast)
	v.SetDefault("s3-use-ssl", true)

	// Plain PORT is honoured for hosting platforms that set it.
	if err := v.BindEnv("port", envPrefix+"_PORT", "PORT"); err != nil {
		return cfg, err
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return cfg, fmt.Errorf("binding flags: %w", err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("druguse")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	switch cfg.Driver {
	case "duckdb", "sqlite":
	default:
		return cfg, fmt.Errorf("invalid driver: %q (want duckdb or sqlite)", cfg.Driver)
	}

	if strings.HasPrefix(cfg.DBPath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("finding home directory: %w", err)
		}
		cfg.DBPath = home + cfg.DBPath[1:]
	}

	if cfg.Addr == "" {
		cfg.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	}

	return cfg, nil
}

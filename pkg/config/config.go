// Package config loads the application configuration from a yaml file and
// BUS_-prefixed environment variables into an explicit struct that is handed
// to each component at construction time.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/vllry/bus-traffic-archive/pkg/registry"
)

const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	RefServer RefServerConfig `mapstructure:"refServer"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	// Cities is the static registry. When empty, the city list is
	// bootstrapped from the reference server at startup.
	Cities []registry.City `mapstructure:"cities"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type RefServerConfig struct {
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
}

type StorageConfig struct {
	Backend   string `mapstructure:"backend"` // local|gcs
	LocalPath string `mapstructure:"localPath"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
}

type IngestConfig struct {
	Workers int `mapstructure:"workers"`
}

// Load reads the config file at path, or searches the usual locations when
// path is empty. Missing files fall back to defaults and environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/bus-traffic-archive")
	}

	v.SetDefault("server.port", "8080")
	v.SetDefault("refServer.url", "http://localhost:8080")
	v.SetDefault("refServer.timeoutSeconds", 30)
	v.SetDefault("storage.backend", BackendLocal)
	v.SetDefault("storage.localPath", "local_storage")
	v.SetDefault("ingest.workers", 8)

	v.SetEnvPrefix("BUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "couldn't read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "couldn't unmarshal config")
	}

	if cfg.Storage.Backend != BackendLocal && cfg.Storage.Backend != BackendGCS {
		return nil, errors.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Backend == BackendGCS && cfg.Storage.Bucket == "" {
		return nil, errors.New("gcs backend requires storage.bucket")
	}

	return &cfg, nil
}

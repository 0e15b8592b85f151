// Package config loads the Splits Coordination Service's
// configuration: a YAML file overridable by environment variables,
// validated by a fallible constructor at boot per spec.md §6.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ServerConfig is the HTTP listener configuration.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig is the persistence layer's connection configuration.
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"` // "postgres" (default) or "sqlite" for tests
}

// EIP712Config carries the domain field defaults from spec.md §4.1.
type EIP712Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// CORSConfig controls the CORS middleware, grounded on the teacher's
// router.go corsMiddleware.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// Config is the fully resolved, immutable-at-boot configuration for
// the service.
type Config struct {
	Server ServerConfig   `yaml:"server"`
	CORS   CORSConfig     `yaml:"cors"`
	DB     DatabaseConfig `yaml:"database"`

	ChainID                 int64  `yaml:"chain_id"`
	SplitCoordinatorAddress string `yaml:"split_coordinator_address"`
	RPCURLScroll            string `yaml:"rpc_url_scroll"`
	EIP712                  EIP712Config `yaml:"eip712"`

	// ExecutorPrivateKey is optional: required only for write
	// operations (createOnchain, settle). Its absence at boot is not
	// an error; a write attempt without it fails lazily with
	// KindMisconfigured per spec.md §4.2.
	ExecutorPrivateKey string `yaml:"-"`
}

// Default returns a Config with spec.md §4.1's documented defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		CORS:   CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true, MaxAge: 3600},
		DB:     DatabaseConfig{Driver: "postgres"},
		EIP712: EIP712Config{Name: "Accountant", Version: "1"},
	}
}

// Load reads configPath (if it exists), applies environment overrides,
// and validates the required fields. It is the fallible constructor
// DESIGN.md assigns to the config layer: a boot-time failure returns a
// KindMisconfigured-flavored plain error (the engine's *core.Error
// type is not used here to keep config import-free of the engine).
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file %s: %w", configPath, err)
			}
			logrus.WithField("path", configPath).Warn("config file not found, using defaults + env")
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	}

	overrideFromEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("CHAIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.ChainID = id
		}
	}
	if v := os.Getenv("SPLIT_COORDINATOR_ADDRESS"); v != "" {
		cfg.SplitCoordinatorAddress = v
	}
	if v := os.Getenv("RPC_URL_SCROLL"); v != "" {
		cfg.RPCURLScroll = v
	}
	if v := os.Getenv("EIP712_NAME"); v != "" {
		cfg.EIP712.Name = v
	}
	if v := os.Getenv("EIP712_VERSION"); v != "" {
		cfg.EIP712.Version = v
	}
	if v := os.Getenv("EXECUTOR_PRIVATE_KEY"); v != "" {
		cfg.ExecutorPrivateKey = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		cleaned := make([]string, 0, len(origins))
		for _, o := range origins {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			cfg.CORS.AllowedOrigins = cleaned
		}
	}
}

func (cfg *Config) validate() error {
	var missing []string
	if cfg.ChainID == 0 {
		missing = append(missing, "CHAIN_ID")
	}
	if cfg.SplitCoordinatorAddress == "" {
		missing = append(missing, "SPLIT_COORDINATOR_ADDRESS")
	}
	if cfg.RPCURLScroll == "" {
		missing = append(missing, "RPC_URL_SCROLL")
	}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DATABASE_DSN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("misconfigured: missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// HasExecutorKey reports whether a write-capable chain gateway can be
// constructed.
func (cfg *Config) HasExecutorKey() bool {
	return cfg.ExecutorPrivateKey != ""
}

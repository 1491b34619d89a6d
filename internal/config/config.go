package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"qwenmt-translator/internal/translator"
)

// Config is the complete process configuration.
type Config struct {
	Server   ServerConfig       `yaml:"server"`
	Provider translator.Options `yaml:"provider"`
	Logging  LoggingConfig      `yaml:"logging"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Env   string `yaml:"env"`
	Level string `yaml:"level"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Provider: translator.Options{
			Model:  translator.DefaultModel,
			Stream: translator.StreamEnable,
		},
	}
}

// Load builds the configuration from, in order: built-in defaults, the YAML
// file at path (or $QWENMT_CONFIG, or ./config.yaml when present) and
// environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if filePath := discoverConfigFile(path); filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that would make the process unusable. A missing API
// key is not an error here; it is reported per request.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server.port %q is not a number", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}
	return nil
}

func discoverConfigFile(path string) string {
	if path != "" {
		return path
	}
	if envPath := os.Getenv("QWENMT_CONFIG"); envPath != "" {
		return envPath
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

// loadYAMLFile reads a YAML file into cfg. Fields absent from the file keep
// their current values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	cfg.Server.Port = getenv("PORT", cfg.Server.Port)
	cfg.Provider.APIKey = getenv("DASHSCOPE_API_KEY", cfg.Provider.APIKey)
	cfg.Provider.APIURL = getenv("DASHSCOPE_API_URL", cfg.Provider.APIURL)
	cfg.Provider.Model = getenv("QWENMT_MODEL", cfg.Provider.Model)
	cfg.Provider.Stream = getenv("QWENMT_STREAM", cfg.Provider.Stream)
	cfg.Logging.Env = getenv("ENV", cfg.Logging.Env)
	cfg.Logging.Level = getenv("LOG_LEVEL", cfg.Logging.Level)
}

// getenv returns the value of the environment variable key or def if not set.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

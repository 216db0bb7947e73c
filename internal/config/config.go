// Package config loads the application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf holds the configuration loaded by Init.
var Conf Config

// Config mirrors configs/config.yaml.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Session  SessionConfig  `mapstructure:"session"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// GeminiConfig holds the generative-language API settings.
// Generation and safety parameters are not configurable here; see llm.DefaultGenerationConfig.
type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SecretsFile string        `mapstructure:"secrets_file"`
}

// SessionConfig selects where per-session history lives.
type SessionConfig struct {
	Store string        `mapstructure:"store"` // "memory" or "redis"
	TTL   time.Duration `mapstructure:"ttl"`
}

// DatabaseConfig holds backing store connections.
type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds the Redis connection used by the "redis" session store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig holds the key used to sign session tokens.
// An empty secret makes the server generate one at startup.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"

	// APIKeyEnv is the environment variable (and secrets file key) holding the API credential.
	APIKeyEnv = "GOOGLE_API_KEY"
)

// ConfigurationError reports a configuration that cannot be served.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Message
}

type secretsFile struct {
	GoogleAPIKey string `toml:"GOOGLE_API_KEY"`
}

// Init loads configuration from configPath into Conf.
func Init(configPath string) error {
	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	Conf = *cfg
	return nil
}

// Load reads configPath (YAML), the process environment and an optional .env
// file, and validates the result.
//
// The API key is taken from GOOGLE_API_KEY, then gemini.api_key, then the
// GOOGLE_API_KEY entry of gemini.secrets_file. A missing config file is not an
// error; defaults and the environment still apply.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GEMINI_CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("gemini.api_key", APIKeyEnv, "GEMINI_CHAT_GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind api key env: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Gemini.APIKey) == "" && cfg.Gemini.SecretsFile != "" {
		key, err := readSecretsFile(cfg.Gemini.SecretsFile)
		if err != nil {
			return nil, err
		}
		cfg.Gemini.APIKey = key
	}
	cfg.Gemini.APIKey = strings.TrimSpace(cfg.Gemini.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_path", "")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.timeout", "60s")
	v.SetDefault("gemini.secrets_file", ".streamlit/secrets.toml")

	v.SetDefault("session.store", StoreMemory)
	v.SetDefault("session.ttl", "24h")

	v.SetDefault("database.redis.addr", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("jwt.secret", "")
}

// readSecretsFile returns the GOOGLE_API_KEY entry of a TOML secrets file.
// A missing file yields an empty key.
func readSecretsFile(path string) (string, error) {
	var s secretsFile
	if _, err := toml.DecodeFile(path, &s); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read secrets file %s: %w", path, err)
	}
	return strings.TrimSpace(s.GoogleAPIKey), nil
}

// Validate checks that the configuration can be served.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return &ConfigurationError{Message: fmt.Sprintf(
			"API key is not set: export %s, add it to .env, set gemini.api_key or put %s in %s",
			APIKeyEnv, APIKeyEnv, c.Gemini.SecretsFile)}
	}
	if c.Gemini.Timeout <= 0 {
		return &ConfigurationError{Message: "gemini.timeout must be positive"}
	}
	switch c.Session.Store {
	case StoreMemory, StoreRedis:
	default:
		return &ConfigurationError{Message: fmt.Sprintf("unknown session.store %q", c.Session.Store)}
	}
	if c.Session.TTL <= 0 {
		return &ConfigurationError{Message: "session.ttl must be positive"}
	}
	return nil
}

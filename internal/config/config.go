package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all application configuration. Values come from an optional
// YAML file with environment variable overrides.
type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	Database   `yaml:"database"`
	HTTPServer `yaml:"http_server"`
	Auth       `yaml:"auth"`
}

// Database contains SQLite settings.
type Database struct {
	Path string `yaml:"path" env:"DB_PATH" env-default:"library.db"`
}

// HTTPServer contains listener settings.
type HTTPServer struct {
	Address      string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// Auth contains token settings. JWTSecret has no default: the service must
// not start with an unset signing key.
type Auth struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"60m"`
}

// MustLoad loads configuration or panics. An empty path reads environment
// variables only.
func MustLoad(configPath string) *Config {
	config, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return config
}

// Load reads the YAML file at path (when given) and applies env overrides.
func Load(path string) (*Config, error) {
	var config Config

	if path == "" {
		if err := cleanenv.ReadEnv(&config); err != nil {
			return nil, err
		}
		return &config, nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	if err := cleanenv.ReadConfig(path, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`

	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Database struct {
		URL     string        `yaml:"url"`
		Name    string        `yaml:"name"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"database"`

	API struct {
		DefaultLimit int `yaml:"default_limit"`
		MaxLimit     int `yaml:"max_limit"`
	} `yaml:"api"`

	RabbitMQ struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"rabbitmq"`

	Workers int `yaml:"workers"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the configuration used when neither a file nor the
// environment sets a value.
func Default() *Config {
	cfg := &Config{Environment: "development"}
	cfg.Server.Port = "8080"
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Database.Name = "testimonials"
	cfg.Database.Timeout = 5 * time.Second
	cfg.API.DefaultLimit = 5
	cfg.API.MaxLimit = 100
	cfg.RabbitMQ.Queue = "testimonial_events"
	cfg.Workers = 1
	cfg.Log.Level = "info"
	return cfg
}

// LoadConfig reads the YAML file at path on top of the defaults and then
// applies environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("PORT"); ok && v != "" {
		cfg.Server.Port = v
	}
	if v, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.AllowedOrigins = origins
	}
	if v, ok := os.LookupEnv("DATABASE_URL"); ok {
		cfg.Database.URL = v
	}
	if v, ok := os.LookupEnv("DATABASE_NAME"); ok && v != "" {
		cfg.Database.Name = v
	}
	if v, ok := os.LookupEnv("RABBITMQ_URL"); ok {
		cfg.RabbitMQ.URL = v
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := os.LookupEnv("ENVIRONMENT"); ok && v != "" {
		cfg.Environment = v
	}
}

func (c *Config) validate() error {
	if c.API.DefaultLimit < 1 {
		return fmt.Errorf("api.default_limit must be positive, got %d", c.API.DefaultLimit)
	}
	if c.API.MaxLimit < c.API.DefaultLimit {
		return fmt.Errorf("api.max_limit (%d) must not be below api.default_limit (%d)", c.API.MaxLimit, c.API.DefaultLimit)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Database.Timeout <= 0 {
		c.Database.Timeout = 5 * time.Second
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

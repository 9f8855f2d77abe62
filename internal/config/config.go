package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MinSampleInterval is the fastest the OS CPU counters are worth polling.
// Reads any closer together return duplicate or meaningless values.
const MinSampleInterval = 200 * time.Millisecond

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Sampler SamplerConfig `yaml:"sampler"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type SamplerConfig struct {
	Interval               time.Duration `yaml:"interval"`
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8799,
		},
		Sampler: SamplerConfig{
			Interval:               MinSampleInterval,
			MaxConsecutiveFailures: 3,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path means no file and yields the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that cannot produce a working server.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Host == "" {
		errs = append(errs, errors.New("server.host must not be empty"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Sampler.Interval < MinSampleInterval {
		errs = append(errs, fmt.Errorf("sampler.interval %v is below the minimum of %v", c.Sampler.Interval, MinSampleInterval))
	}
	if c.Sampler.MaxConsecutiveFailures < 1 {
		errs = append(errs, fmt.Errorf("sampler.max_consecutive_failures must be at least 1, got %d", c.Sampler.MaxConsecutiveFailures))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

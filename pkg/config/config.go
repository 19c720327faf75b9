// Package config loads the looking-glass YAML configuration file.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied to unset fields.
const (
	DefaultListen         = ":8080"
	DefaultAPIBaseURL     = "http://localhost:5000"
	DefaultRequestTimeout = 30 * time.Second
	DefaultMetadataTTL    = 10 * time.Minute
	DefaultStatsInterval  = 30 * time.Second
)

type Config struct {
	Listen string `yaml:"listen"`
	API    struct {
		BaseURL string        `yaml:"baseURL"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`
	Redis    string `yaml:"redis"`
	Database string `yaml:"database"`
	ASNData  string `yaml:"asnData"`

	MetadataTTL   time.Duration `yaml:"metadataTTL"`
	StatsInterval time.Duration `yaml:"statsInterval"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var config Config
	config.applyDefaults()
	return &config
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultAPIBaseURL
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = DefaultRequestTimeout
	}
	if c.MetadataTTL <= 0 {
		c.MetadataTTL = DefaultMetadataTTL
	}
	if c.StatsInterval <= 0 {
		c.StatsInterval = DefaultStatsInterval
	}
}

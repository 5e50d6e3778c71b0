// Package config loads the service configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// EnvPath overrides the config file location.
const EnvPath = "FLATPRICE_CONFIG"

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	ML struct {
		ModelType string `yaml:"model_type"`
		ModelPath string `yaml:"model_path"`
		CacheSize int    `yaml:"cache_size"`
	} `yaml:"ml"`
	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`
}

// Default returns the configuration used for anything the file leaves unset.
func Default() *Config {
	var c Config
	c.Http.Port = 1702
	c.Http.Timeout = 30 * time.Second
	c.Http.MaxBodyBytes = 1 << 20
	c.Http.AllowedOrigins = []string{"*"}
	c.Log.Level = "info"
	c.Log.MaxSizeMB = 100
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 28
	c.ML.ModelType = "tree_ensemble"
	c.ML.ModelPath = "./models/flats_prices_model.json"
	c.ML.CacheSize = 1024
	return &c
}

// Path returns the config file to read: $FLATPRICE_CONFIG or fallback.
func Path(fallback string) string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return fallback
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Http.Port == 0 {
		c.Http.Port = def.Http.Port
	}
	if c.Http.Timeout == 0 {
		c.Http.Timeout = def.Http.Timeout
	}
	if c.Http.MaxBodyBytes == 0 {
		c.Http.MaxBodyBytes = def.Http.MaxBodyBytes
	}
	if len(c.Http.AllowedOrigins) == 0 {
		c.Http.AllowedOrigins = def.Http.AllowedOrigins
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

func (c *Config) Validate() error {
	if c.Http.Port < 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Http.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative")
	}
	if c.ML.CacheSize < 0 {
		return fmt.Errorf("ml.cache_size must not be negative")
	}
	return nil
}

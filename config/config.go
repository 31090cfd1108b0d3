package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	ML struct {
		ModelType string `yaml:"model_type"`
		ModelPath string `yaml:"model_path"`
		Watch     bool   `yaml:"watch"`
	} `yaml:"ml"`
	History struct {
		Enabled    bool   `yaml:"enabled"`
		Path       string `yaml:"path"`
		RecentSize int    `yaml:"recent_size"`
	} `yaml:"history"`
}

// Default returns the configuration used for keys missing from the file.
func Default() *Config {
	var c Config
	c.Http.Port = 8080
	c.Http.Timeout = 30 * time.Second
	c.Http.AllowedOrigins = []string{"*"}
	c.Log.Level = "info"
	c.Log.Format = "json"
	c.Log.MaxSizeMB = 50
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 28
	c.ML.ModelType = "decision_tree"
	c.ML.ModelPath = "models/heart.json"
	c.ML.Watch = true
	c.History.Path = "data/history.db"
	c.History.RecentSize = 256
	return &c
}

// Load decodes the YAML file at path on top of Default.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if c.Http.Timeout <= 0 {
		return errors.New("http.timeout must be positive")
	}
	if c.ML.ModelType == "" || c.ML.ModelPath == "" {
		return errors.New("ml.model_type and ml.model_path are required")
	}
	if c.History.Enabled && c.History.Path == "" {
		return errors.New("history.path is required when history is enabled")
	}
	if c.History.RecentSize <= 0 {
		c.History.RecentSize = 256
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds user preferences
type Config struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"` // Bridge listen address
	DataDir    string `yaml:"data_dir" json:"data_dir"`       // Database + attachments root

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Enable console logging

	// Retention sweeper
	SweepIntervalHours int `yaml:"sweep_interval_hours" json:"sweep_interval_hours"`
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	dataDir := ""
	logPath := ""
	if home != "" {
		dataDir = filepath.Join(home, ".tasknest")
		logPath = filepath.Join(home, ".tasknest", "logs", "tasknest.log")
	}

	return &Config{
		ListenAddr:         getEnv("TASKNEST_LISTEN_ADDR", "127.0.0.1:8137"),
		DataDir:            getEnv("TASKNEST_DATA_DIR", dataDir),
		LogLevel:           getEnv("TASKNEST_LOG_LEVEL", "INFO"),
		LogFile:            getEnv("TASKNEST_LOG_FILE", logPath),
		LogConsole:         getEnv("TASKNEST_LOG_CONSOLE", "false") == "true",
		SweepIntervalHours: 24,
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// DatabasePath returns the sqlite file path under the data dir
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "tasknest.db")
}

// AttachmentsDir returns the attachment storage root under the data dir
func (c *Config) AttachmentsDir() string {
	return filepath.Join(c.DataDir, "attachments")
}

// Load loads config from ~/.tasknest/config.yaml
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(home, ".tasknest", "config.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Return defaults if no config
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save saves config to ~/.tasknest/config.yaml
func (c *Config) Save() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(home, ".tasknest")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML file from the given path and returns a new ConfigManager.
// If the file doesn't exist, creates a default configuration.
func Load(path string) (*Manager, error) {
	// Check if config file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("Config file not found, creating default configuration", "path", path)
		defaultCfg := createDefaultConfig()
		applyEnv(defaultCfg)

		manager := NewManager(defaultCfg)
		if err := manager.Save(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return manager, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Start from defaults so partial files keep sane timings.
	cfg := createDefaultConfig()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return NewManager(cfg), nil
}

// Validate checks the struct tags of cfg.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// applyEnv overrides values with environment variables if set
func applyEnv(cfg *Config) {
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if db := os.Getenv("SNAPSAVER_DB"); db != "" {
		cfg.Database.Path = db
	}
}

// createDefaultConfig creates a new Config with sensible default values
func createDefaultConfig() *Config {
	return &Config{
		Database: Database{
			Path: "./snapsaver.db",
		},
		Watcher: Watcher{
			StabilityThreshold: 2 * time.Second,
			PollInterval:       100 * time.Millisecond,
			RetryDelay:         5 * time.Second,
			SuppressionWindow:  3 * time.Second,
			Ignore:             []string{"*.tmp", "*.part", "*.crdownload"},
		},
		Naming: Naming{
			Asciify: false,
		},
		Server: Server{
			PrintRoutes: false,
			Port:        3536,
		},
		Logger: Logger{
			Enabled: true,
			Level:   "info",
			Format:  "text",
		},
		Telegram: Telegram{
			Enabled:      false,
			Token:        "",                                   // Can be obtained with https://t.me/BotFather
			AllowedUsers: []string{"<your_telegram_username>"}, // No @
			ChatIDs:      []int64{},
		},
		Metrics: Metrics{
			Enabled: true,
		},
	}
}

// Default returns a fresh copy of the default configuration.
func Default() *Config {
	return createDefaultConfig()
}

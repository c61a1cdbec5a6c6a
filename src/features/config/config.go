package config

import "time"

// Config holds the application configuration.
type Config struct {
	Database Database `yaml:"database"`
	Watcher  Watcher  `yaml:"watcher"`
	Naming   Naming   `yaml:"naming"`
	Server   Server   `yaml:"server"`
	Logger   Logger   `yaml:"logger"`
	Telegram Telegram `yaml:"telegram"`
	Metrics  Metrics  `yaml:"metrics"`
}

// Database holds the configuration for the settings database
type Database struct {
	Path string `yaml:"path" validate:"required"`
}

// Watcher holds the timing of the directory watcher and the suppression set.
type Watcher struct {
	StabilityThreshold time.Duration `yaml:"stability_threshold" validate:"gt=0"`
	PollInterval       time.Duration `yaml:"poll_interval" validate:"gt=0"`
	RetryDelay         time.Duration `yaml:"retry_delay" validate:"gt=0"`
	SuppressionWindow  time.Duration `yaml:"suppression_window" validate:"gt=0"`
	Ignore             []string      `yaml:"ignore"`
}

// Naming controls how user supplied names are cleaned.
type Naming struct {
	Asciify bool `yaml:"asciify"`
}

// Server hold the configuration for the Fiber server Config
type Server struct {
	PrintRoutes bool   `yaml:"show_routes"`
	Port        uint32 `yaml:"port" validate:"gt=0,lte=65535"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format  string `yaml:"format" validate:"omitempty,oneof=json text logfmt"`
}

type Telegram struct {
	Enabled      bool     `yaml:"enabled"`
	Token        string   `yaml:"token" validate:"required_if=Enabled true"`
	AllowedUsers []string `yaml:"allowedUsers"`
	ChatIDs      []int64  `yaml:"chat_ids"` // Chats that receive detections and results
}

// Metrics toggles the prometheus endpoint.
type Metrics struct {
	Enabled bool `yaml:"enabled"`
}

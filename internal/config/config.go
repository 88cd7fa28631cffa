// Package config handles sfctool configuration loading and management.
package config

import "time"

// Config holds all tool settings.
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Output  OutputConfig  `yaml:"output"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// DataConfig holds game data locations and decode options.
type DataConfig struct {
	SpritePaths    []string `yaml:"sprite_paths" env:"ALBIA_SPRITE_PATHS" envSeparator:":"` // Directories searched for .s16 files
	StrictTrailing bool     `yaml:"strict_trailing" env:"ALBIA_STRICT_TRAILING"`           // Fail when bytes remain after the scenery list
}

// OutputConfig controls how commands print results.
type OutputConfig struct {
	Format   string `yaml:"format" env:"ALBIA_FORMAT"`       // text or yaml
	MaxRooms int    `yaml:"max_rooms" env:"ALBIA_MAX_ROOMS"` // 0 prints every room
}

// ExportConfig holds SQLite export settings.
type ExportConfig struct {
	BusyTimeout     time.Duration `yaml:"busy_timeout" env:"ALBIA_EXPORT_BUSY_TIMEOUT"`
	IncludeBacteria bool          `yaml:"include_bacteria" env:"ALBIA_EXPORT_BACTERIA"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" env:"ALBIA_LOG_LEVEL"`
	LogFile string `yaml:"log_file" env:"ALBIA_LOG_FILE"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			SpritePaths:    []string{"Images"},
			StrictTrailing: false,
		},
		Output: OutputConfig{
			Format:   "text",
			MaxRooms: 0,
		},
		Export: ExportConfig{
			BusyTimeout:     5 * time.Second,
			IncludeBacteria: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

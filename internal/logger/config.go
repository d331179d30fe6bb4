package logger

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds logging configuration
type Config struct {
	Level          string `yaml:"level"`
	ConsoleEnabled bool   `yaml:"console_enabled"`
	ConsoleFormat  string `yaml:"console_format"`
	FileEnabled    bool   `yaml:"file_enabled"`
	FilePath       string `yaml:"file_path"`
	FileFormat     string `yaml:"file_format"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
	FileCompress   bool   `yaml:"file_compress"`
}

// LoggingConfig wraps the Config for YAML parsing
type LoggingConfig struct {
	Logging *fileConfig `yaml:"logging"`
}

// fileConfig mirrors Config with pointer booleans so that an omitted key
// keeps the default instead of turning it off.
type fileConfig struct {
	Level          string `yaml:"level"`
	ConsoleEnabled *bool  `yaml:"console_enabled"`
	ConsoleFormat  string `yaml:"console_format"`
	FileEnabled    *bool  `yaml:"file_enabled"`
	FilePath       string `yaml:"file_path"`
	FileFormat     string `yaml:"file_format"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
	FileCompress   *bool  `yaml:"file_compress"`
}

// DefaultConfig returns console-only INFO logging
func DefaultConfig() Config {
	return Config{
		Level:          "INFO",
		ConsoleEnabled: true,
		ConsoleFormat:  "text",
		FileEnabled:    false,
		FilePath:       "logs/levelgen.log",
		FileFormat:     "text",
		FileMaxSizeMB:  10,
		FileMaxBackups: 5,
		FileMaxAgeDays: 30,
	}
}

// LoadConfig loads logging configuration from a YAML file
// and applies environment variable overrides.
// A missing or unreadable file leaves the defaults in place.
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			var loaded LoggingConfig
			if err := yaml.Unmarshal(data, &loaded); err == nil && loaded.Logging != nil {
				loaded.Logging.mergeInto(&config)
			}
		}
	}

	applyEnv(&config)
	return config, nil
}

func (fc *fileConfig) mergeInto(config *Config) {
	if fc.Level != "" {
		config.Level = fc.Level
	}
	if fc.ConsoleEnabled != nil {
		config.ConsoleEnabled = *fc.ConsoleEnabled
	}
	if fc.ConsoleFormat != "" {
		config.ConsoleFormat = fc.ConsoleFormat
	}
	if fc.FileEnabled != nil {
		config.FileEnabled = *fc.FileEnabled
	}
	if fc.FilePath != "" {
		config.FilePath = fc.FilePath
	}
	if fc.FileFormat != "" {
		config.FileFormat = fc.FileFormat
	}
	if fc.FileMaxSizeMB > 0 {
		config.FileMaxSizeMB = fc.FileMaxSizeMB
	}
	if fc.FileMaxBackups > 0 {
		config.FileMaxBackups = fc.FileMaxBackups
	}
	if fc.FileMaxAgeDays > 0 {
		config.FileMaxAgeDays = fc.FileMaxAgeDays
	}
	if fc.FileCompress != nil {
		config.FileCompress = *fc.FileCompress
	}
}

func applyEnv(config *Config) {
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.Level = logLevel
	}

	if consoleFormat := os.Getenv("LOG_CONSOLE_FORMAT"); consoleFormat != "" {
		config.ConsoleFormat = consoleFormat
	}

	if fileEnabled := os.Getenv("LOG_FILE_ENABLED"); fileEnabled != "" {
		if enabled, err := strconv.ParseBool(fileEnabled); err == nil {
			config.FileEnabled = enabled
		}
	}

	if filePath := os.Getenv("LOG_FILE_PATH"); filePath != "" {
		config.FilePath = filePath
	}
}

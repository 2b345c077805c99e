// Package config loads clipkeep settings from YAML and environment
// variables. The storage folder is the only required value; everything
// else has a usable default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	StorageFolder string       `mapstructure:"storage_folder" validate:"required"`
	SourceFolder  string       `mapstructure:"source_folder" validate:"omitempty,dir"`
	Import        ImportConfig `mapstructure:"import"`
	Watch         WatchConfig  `mapstructure:"watch"`
	OpenAI        OpenAIConfig `mapstructure:"openai"`
}

// ImportConfig holds import behavior settings
type ImportConfig struct {
	IgnorePatterns []string `mapstructure:"ignore_patterns"`
}

// WatchConfig holds source folder watch settings
type WatchConfig struct {
	DebounceMs int `mapstructure:"debounce_ms" validate:"min=0"`
}

// OpenAIConfig holds the caption freshener settings. The API key is
// normally supplied through OPENAI_API_KEY rather than the config file.
type OpenAIConfig struct {
	Model  string `mapstructure:"model"`
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Import: ImportConfig{
			IgnorePatterns: []string{
				".*",
				"*.tmp",
				"*.partial",
				"*.crdownload",
			},
		},
		Watch: WatchConfig{
			DebounceMs: 2000,
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
	}
}

// Load reads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("import.ignore_patterns", defaults.Import.IgnorePatterns)
	v.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMs)
	v.SetDefault("openai.model", defaults.OpenAI.Model)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(GetConfigDir())
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("CLIPKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is okay if we have environment variables
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.StorageFolder = ExpandPath(cfg.StorageFolder)
	cfg.SourceFolder = ExpandPath(cfg.SourceFolder)

	// The environment key always wins over the config file.
	if envKey := os.Getenv("OPENAI_API_KEY"); strings.TrimSpace(envKey) != "" {
		cfg.OpenAI.APIKey = envKey
	}
	cfg.OpenAI.APIKey = os.ExpandEnv(cfg.OpenAI.APIKey)

	validate := validator.New()
	validate.RegisterValidation("dir", func(fl validator.FieldLevel) bool {
		path := fl.Field().String()
		if path == "" {
			return false
		}
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		return info.IsDir()
	})

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// GetConfigDir returns the appropriate config directory for the OS
func GetConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "clipkeep")
		}
		return filepath.Join(os.Getenv("USERPROFILE"), ".config", "clipkeep")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, "clipkeep")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "clipkeep")
	}
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[1:])
	}
	return os.ExpandEnv(path)
}

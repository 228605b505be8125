package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats for local conversion.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// Config holds all configuration values.
type Config struct {
	// Local output
	OutputDir string `yaml:"output_dir"`
	Format    string `yaml:"format"`

	// Google Drive
	DriveFolder     string `yaml:"drive_folder"`
	CredentialsPath string `yaml:"credentials_path"`
	TokenPath       string `yaml:"token_path"`
	ConvertToDocs   bool   `yaml:"convert_to_docs"`

	// Worker pool
	Concurrency int `yaml:"concurrency"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`

	LogLevelName string `yaml:"log_level"`
}

// Load builds configuration from defaults, then an optional YAML file,
// then environment variable overrides.
func Load() Config {
	cfg := defaults()

	path := configFilePath()
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: ignoring malformed config %s: %v\n", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.LogLevelName != "" {
		cfg.LogLevel = parseLogLevel(cfg.LogLevelName)
	}
	if cfg.Format != FormatMarkdown {
		cfg.Format = FormatHTML
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return cfg
}

func defaults() Config {
	configDir := userConfigDir()
	return Config{
		OutputDir:       "export",
		Format:          FormatHTML,
		DriveFolder:     "ChatGPT Export",
		CredentialsPath: filepath.Join(configDir, "credentials.json"),
		TokenPath:       filepath.Join(configDir, "token.json"),
		ConvertToDocs:   false,
		Concurrency:     4,
		LogFile:         filepath.Join(os.TempDir(), "chatexport.log"),
		LogLevel:        slog.LevelInfo,
	}
}

func applyEnv(cfg *Config) {
	cfg.OutputDir = getEnv("CHATEXPORT_OUTPUT_DIR", cfg.OutputDir)
	cfg.Format = getEnv("CHATEXPORT_FORMAT", cfg.Format)
	cfg.DriveFolder = getEnv("CHATEXPORT_DRIVE_FOLDER", cfg.DriveFolder)
	cfg.CredentialsPath = getEnv("CHATEXPORT_CREDENTIALS", cfg.CredentialsPath)
	cfg.TokenPath = getEnv("CHATEXPORT_TOKEN", cfg.TokenPath)
	cfg.LogFile = getEnv("CHATEXPORT_LOG_FILE", cfg.LogFile)

	if v := os.Getenv("CHATEXPORT_LOG_LEVEL"); v != "" {
		cfg.LogLevelName = v
	}
	if v := os.Getenv("CHATEXPORT_CONVERT_TO_DOCS"); v != "" {
		cfg.ConvertToDocs = v == "true" || v == "1"
	}
	if v := os.Getenv("CHATEXPORT_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Concurrency = n
		}
	}
}

// configFilePath honors an explicit override before the default
// location.
func configFilePath() string {
	if path := os.Getenv("CHATEXPORT_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(userConfigDir(), "config.yaml")
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "chatexport")
	}
	return "."
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

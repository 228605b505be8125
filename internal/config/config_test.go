package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CHATEXPORT_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()

	if cfg.Format != FormatHTML {
		t.Errorf("Format = %q, want html", cfg.Format)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4", cfg.Concurrency)
	}
	if cfg.DriveFolder != "ChatGPT Export" {
		t.Errorf("DriveFolder = %q", cfg.DriveFolder)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "format: markdown\ndrive_folder: Archive\nconcurrency: 2\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CHATEXPORT_CONFIG", path)
	t.Setenv("CHATEXPORT_DRIVE_FOLDER", "FromEnv")

	cfg := Load()

	if cfg.Format != FormatMarkdown {
		t.Errorf("Format = %q, want markdown", cfg.Format)
	}
	// Env wins over file.
	if cfg.DriveFolder != "FromEnv" {
		t.Errorf("DriveFolder = %q, want FromEnv", cfg.DriveFolder)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want 2", cfg.Concurrency)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("format: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHATEXPORT_CONFIG", path)

	cfg := Load()
	if cfg.Format != FormatHTML {
		t.Errorf("malformed config should keep defaults, Format = %q", cfg.Format)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupLoggerWritesJSONFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "chatexport.log")

	logger, cleanup := SetupLogger(logFile, slog.LevelInfo)
	logger.Info("archive opened", "path", "export.zip")
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup() error = %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, data)
	}
	if entry["msg"] != "archive opened" || entry["path"] != "export.zip" {
		t.Errorf("unexpected log entry: %v", entry)
	}
}

func TestSetupLoggerUnwritableFileDegrades(t *testing.T) {
	// Pointing the log file at a directory makes the open fail; the
	// logger must still come back usable.
	dir := t.TempDir()

	logger, cleanup := SetupLogger(dir, slog.LevelInfo)
	if logger == nil {
		t.Fatal("logger is nil")
	}
	logger.Info("still logging")
	if err := cleanup(); err != nil {
		t.Errorf("cleanup() error = %v", err)
	}
}

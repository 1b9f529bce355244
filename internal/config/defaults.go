package config

import (
	"os"
	"path/filepath"
	"strings"

	"xtts-desktop/internal/domain"
)

// DefaultServerURL is the xtts-api-server default listen address.
const DefaultServerURL = "http://localhost:8020"

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		ServerURL:   DefaultServerURL,
		OutputDir:   filepath.Join(homeDir, "Documents", "XTTS"),
		SplitMode:   "sentence",
		PreviewText: "test",
	}
}

// Normalize trims user input and restores required defaults.
func Normalize(cfg domain.Settings) domain.Settings {
	cfg.ServerURL = domain.NormalizeServerURL(cfg.ServerURL)
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	cfg.Voice = strings.TrimSpace(cfg.Voice)
	cfg.Language = strings.TrimSpace(cfg.Language)
	cfg.OutputDir = strings.TrimSpace(cfg.OutputDir)

	cfg.SplitMode = strings.ToLower(strings.TrimSpace(cfg.SplitMode))
	if cfg.SplitMode != "line" {
		cfg.SplitMode = "sentence"
	}
	cfg.BatchFormat = strings.ToLower(strings.TrimSpace(cfg.BatchFormat))
	if cfg.BatchFormat != "wav" && cfg.BatchFormat != "mp3" {
		cfg.BatchFormat = ""
	}
	if strings.TrimSpace(cfg.PreviewText) == "" {
		cfg.PreviewText = "test"
	}
	if cfg.RequestTimeoutSeconds < 0 {
		cfg.RequestTimeoutSeconds = 0
	}
	return cfg
}

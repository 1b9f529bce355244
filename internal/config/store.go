package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"xtts-desktop/internal/domain"
)

// Store defines persistence operations for app settings.
type Store interface {
	Load() (domain.Settings, error)
	Save(domain.Settings) error
}

// YAMLStore persists settings in a single YAML file on disk.
type YAMLStore struct {
	path string
}

// NewYAMLStore creates a YAML-backed settings store.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

// DefaultPath returns ~/.xtts-desktop/settings.yaml.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".xtts-desktop", "settings.yaml")
}

// Path returns the backing file location.
func (s *YAMLStore) Path() string {
	return s.path
}

// Load reads settings from disk or returns defaults when missing. Keys absent
// from the file keep their default values.
func (s *YAMLStore) Load() (domain.Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}

		return domain.Settings{}, fmt.Errorf("failed to read settings file: %w", err)
	}

	cfg := DefaultSettings()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Settings{}, fmt.Errorf("failed to parse settings file: %w", err)
	}

	return Normalize(cfg), nil
}

// Save writes settings as YAML and creates parent directories.
func (s *YAMLStore) Save(cfg domain.Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(Normalize(cfg))
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o644)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"xtts-desktop/internal/domain"
)

// TestDefaultSettings verifies baseline defaults are present.
func TestDefaultSettings(t *testing.T) {
	cfg := DefaultSettings()
	if cfg.ServerURL != "http://localhost:8020" {
		t.Fatalf("server url = %q", cfg.ServerURL)
	}
	if cfg.SplitMode != "sentence" || cfg.CleanupParts || cfg.PreviewText != "test" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.OutputDir == "" {
		t.Fatal("expected non-empty output dir")
	}
}

// TestYAMLStoreLoadMissingReturnsDefaults checks first-run behavior.
func TestYAMLStoreLoadMissingReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "settings.yaml")
	store := NewYAMLStore(path)

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != DefaultSettings() {
		t.Fatalf("settings = %+v, want defaults", got)
	}
}

// TestYAMLStoreSaveAndLoadRoundTrip checks persisted settings fidelity.
func TestYAMLStoreSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.yaml")
	store := NewYAMLStore(path)
	want := domain.Settings{
		ServerURL:             "http://tts.lan:8020",
		Voice:                 "Ana",
		Language:              "Polish",
		OutputDir:             "/out",
		SplitMode:             "line",
		CleanupParts:          true,
		BatchFormat:           "mp3",
		PreviewText:           "hello",
		RequestTimeoutSeconds: 30,
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Fatalf("settings = %+v, want %+v", got, want)
	}
}

// TestYAMLStorePartialFileKeepsDefaults checks that absent keys fall back.
func TestYAMLStorePartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("server_url: http://other:9000/\nvoice: Bob\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := NewYAMLStore(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.ServerURL != "http://other:9000" || got.Voice != "Bob" {
		t.Fatalf("settings = %+v", got)
	}
	if got.SplitMode != "sentence" || got.PreviewText != "test" || got.OutputDir == "" {
		t.Fatalf("defaults lost: %+v", got)
	}
}

// TestYAMLStoreLoadInvalidYAML checks parse error handling.
func TestYAMLStoreLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("server_url: [unterminated"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := NewYAMLStore(path)
	if _, err := store.Load(); err == nil {
		t.Fatal("expected yaml parse error")
	}
}

// TestNormalize verifies trimming and fallback values.
func TestNormalize(t *testing.T) {
	got := Normalize(domain.Settings{
		ServerURL:             "  ",
		Voice:                 " Ana ",
		SplitMode:             "LINE",
		BatchFormat:           "ogg",
		RequestTimeoutSeconds: -5,
	})
	if got.ServerURL != DefaultServerURL || got.Voice != "Ana" || got.SplitMode != "line" {
		t.Fatalf("normalized = %+v", got)
	}
	if got.BatchFormat != "" || got.RequestTimeoutSeconds != 0 || got.PreviewText != "test" {
		t.Fatalf("normalized = %+v", got)
	}
}

// TestApplyEnvOverrides checks environment and .env precedence.
func TestApplyEnvOverrides(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("XTTS_VOICE=FromDotenv\nXTTS_SERVER_URL=http://dotenv:1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("XTTS_SERVER_URL", "http://env:8020/")
	t.Setenv("XTTS_CLEANUP_PARTS", "true")
	t.Setenv("XTTS_REQUEST_TIMEOUT", "15")
	// Registers restoration, then clears so the .env value can apply.
	t.Setenv("XTTS_VOICE", "")
	_ = os.Unsetenv("XTTS_VOICE")

	got := ApplyEnv(DefaultSettings(), envFile)
	if got.ServerURL != "http://env:8020" {
		t.Fatalf("server url = %q, process env should win", got.ServerURL)
	}
	if got.Voice != "FromDotenv" {
		t.Fatalf("voice = %q, want value from .env", got.Voice)
	}
	if !got.CleanupParts || got.RequestTimeoutSeconds != 15 {
		t.Fatalf("settings = %+v", got)
	}
}

package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"xtts-desktop/internal/domain"
)

// ApplyEnv loads .env files (missing ones are ignored) and lets XTTS_* variables
// override persisted values. Overrides are not written back to the store.
func ApplyEnv(cfg domain.Settings, envFiles ...string) domain.Settings {
	_ = godotenv.Load(envFiles...)

	overrideString(&cfg.ServerURL, "XTTS_SERVER_URL")
	overrideString(&cfg.OutputDir, "XTTS_OUTPUT_DIR")
	overrideString(&cfg.Voice, "XTTS_VOICE")
	overrideString(&cfg.Language, "XTTS_LANGUAGE")
	overrideString(&cfg.SplitMode, "XTTS_SPLIT_MODE")
	overrideString(&cfg.BatchFormat, "XTTS_BATCH_FORMAT")
	overrideBool(&cfg.CleanupParts, "XTTS_CLEANUP_PARTS")
	overrideInt(&cfg.RequestTimeoutSeconds, "XTTS_REQUEST_TIMEOUT")
	return Normalize(cfg)
}

func overrideString(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*target = v
	}
}

func overrideBool(target *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*target = b
		}
	}
}

func overrideInt(target *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*target = n
		}
	}
}

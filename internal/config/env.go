package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// SettingsEnv names the environment variable that selects the settings file.
const SettingsEnv = "STACBG_SETTINGS_FILE"

// DefaultSettingsFile is used when neither a flag nor the environment names one.
const DefaultSettingsFile = "settings.yaml"

// ResolvePath picks the settings file: an explicit path wins, then a
// non-empty STACBG_SETTINGS_FILE, then the same key in a .env file in the
// working directory, then settings.yaml in the working directory.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := strings.TrimSpace(os.Getenv(SettingsEnv)); p != "" {
		return p
	}
	if env, err := godotenv.Read(".env"); err == nil {
		if p := strings.TrimSpace(env[SettingsEnv]); p != "" {
			return p
		}
	}
	return DefaultSettingsFile
}

package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// GetGlobalConfigDir returns the path to the global configuration directory (~/.phasewing).
// It's a variable to allow overriding in tests.
var GetGlobalConfigDir = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "."+AppName), nil
}

// GetDataDir returns the directory holding the database.
// Resolution order (first match wins):
// 1. Explicit config via "store.path" (Viper/env/flag)
// 2. Local directory: .phasewing (if exists)
// 3. XDG_DATA_HOME/phasewing (if XDG_DATA_HOME is set)
// 4. Global fallback: ~/.phasewing
func GetDataDir() string {
	if path := viper.GetString("store.path"); path != "" {
		return path
	}

	local := "." + AppName
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local
	}

	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, AppName)
	}

	dir, err := GetGlobalConfigDir()
	if err != nil {
		return "./" + local
	}
	return dir
}

// GetPhasesDir returns the directory scanned for phase overrides:
// "phases.dir" when set, otherwise <data dir>/phases.
func GetPhasesDir() string {
	if dir := viper.GetString("phases.dir"); dir != "" {
		return dir
	}
	return filepath.Join(GetDataDir(), "phases")
}

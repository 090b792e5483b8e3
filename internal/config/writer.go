package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/josephgoksu/PhaseWing/internal/llm"
)

// GlobalConfigFile is ~/.phasewing/config.yaml.
func GlobalConfigFile() (string, error) {
	dir, err := GetGlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// SaveGlobalLLMConfig stores the provider, model and (optional) API key in
// the global config file, keeping any other settings already there.
func SaveGlobalLLMConfig(provider, model, key string) error {
	p, err := llm.ValidateProvider(provider)
	if err != nil {
		return err
	}
	if model == "" {
		model = llm.DefaultModelForProvider(provider)
	}

	path, err := GlobalConfigFile()
	if err != nil {
		return err
	}
	return writeLLMConfig(path, p, model, key)
}

func writeLLMConfig(path string, provider llm.Provider, model, key string) error {
	settings := map[string]any{
		"llm.provider": string(provider),
		"llm.model":    model,
	}
	if key != "" {
		settings[fmt.Sprintf("llm.apiKeys.%s", provider)] = key
	}
	return writeSettings(path, settings)
}

// SaveGlobalSetting stores one key in the global config file.
func SaveGlobalSetting(key string, value any) error {
	path, err := GlobalConfigFile()
	if err != nil {
		return err
	}
	return writeSettings(path, map[string]any{key: value})
}

func writeSettings(path string, settings map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	}
	for k, val := range settings {
		v.Set(k, val)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return err
	}
	// The file may hold API keys.
	return os.Chmod(path, 0600)
}

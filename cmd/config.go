/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/josephgoksu/PhaseWing/internal/config"
)

const (
	configName = "." + config.AppName
	envPrefix  = "PHASEWING"
)

// InitConfig reads in config file and ENV variables if set.
func InitConfig() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	// Env handling is set up before reading the file so env vars win.
	viper.SetEnvPrefix(envPrefix)                          // e.g., PHASEWING_SERVER_PORT
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // server.port -> SERVER_PORT
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if dir, err := config.GetGlobalConfigDir(); err == nil {
			viper.AddConfigPath(dir)
		}
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	case errors.As(err, &notFound):
		// Defaults and environment variables are enough.
	default:
		fmt.Fprintln(os.Stderr, "Error reading config file:", viper.ConfigFileUsed(), "-", err)
	}

	mergeGlobalConfig()
}

// mergeGlobalConfig layers ~/.phasewing/config.yaml (written by
// "phasewing config llm") under the project config.
func mergeGlobalConfig() {
	path, err := config.GlobalConfigFile()
	if err != nil || path == viper.ConfigFileUsed() {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	global := viper.New()
	global.SetConfigFile(path)
	if err := global.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "Error reading global config:", path, "-", err)
		return
	}
	for _, key := range global.AllKeys() {
		if !viper.InConfig(key) {
			viper.SetDefault(key, global.Get(key))
		}
	}
}

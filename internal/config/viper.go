// Package config loads the uploader's configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// searchPaths lists, in priority order, the directories load checks for
// a config file in addition to configPath itself.
var searchPaths = []string{".", "./config"}

// load reads configuration from file and environment variables.
// configPath is the directory containing config files; configName is the
// file's base name without extension. A missing config file is not an
// error: every tunable still gets its SetDefault value from the caller.
func load(configPath, configName string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")

	for _, dir := range append([]string{configPath}, searchPaths...) {
		v.AddConfigPath(dir)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	err := v.ReadInConfig()
	switch err.(type) {
	case nil, viper.ConfigFileNotFoundError:
		return v, nil
	default:
		return nil, fmt.Errorf("config: read %s.yaml: %w", configName, err)
	}
}

// GetEnv returns the environment variable value, or defaultValue if it
// is unset or empty.
func GetEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Returns caller with last two directories.
// Meant for using in console for development - not performance optimized.
func consoleFormatCallerLastTwoDirs(i interface{}) string {
	c, _ := i.(string)
	split := strings.Split(c, string(os.PathSeparator))
	if l := len(split); l > 2 {
		return strings.Join(split[l-3:], "/")
	}
	return strings.Join(split, "/")
}

func loadGlobalConfigFromFile(fileName string) (GlobalConfig, error) {
	type LoggerConfiguration struct {
		DefaultLevel  string            `yaml:"defaultLevel"`
		PackageLevels map[string]string `yaml:"packageLevels"`
		OutputPath    string            `yaml:"outputPath"`
		ConsoleFormat bool              `yaml:"consoleFormat"`
		ShowCaller    bool              `yaml:"showCaller"`
		TimeLocation  string            `yaml:"timeLocation"`
	}

	yamlFile, err := os.ReadFile(filepath.Clean(fileName))
	if err != nil {
		return GlobalConfig{}, fmt.Errorf("failed to read logger config file: %w", err)
	}
	config := &LoggerConfiguration{}
	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return GlobalConfig{}, fmt.Errorf("failed to unmarshal logger config: %w", err)
	}

	globalConfig := GlobalConfig{
		DefaultLevel:  LevelFromString(config.DefaultLevel),
		PackageLevels: make(map[string]LogLevel),
		Writer:        os.Stdout,
		ConsoleFormat: config.ConsoleFormat,
		ShowCaller:    config.ShowCaller,
		TimeLocation:  config.TimeLocation,
	}
	if config.OutputPath != "" {
		file, err := os.OpenFile(config.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // -rw-------
		if err != nil {
			return GlobalConfig{}, fmt.Errorf("failed to open log file: %w", err)
		}
		globalConfig.Writer = file
	}
	// Log levels for individual packages
	for k, v := range config.PackageLevels {
		globalConfig.PackageLevels[k] = LevelFromString(v)
	}
	return globalConfig, nil
}

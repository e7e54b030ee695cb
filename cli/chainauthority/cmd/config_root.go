package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alphabill-org/chainauthority/internal/logger"
	"github.com/spf13/cobra"
)

type baseConfiguration struct {
	// The chain authority home directory
	HomeDir string
	// Configuration file URL. If it's relative, then it's relative from the HomeDir.
	CfgFile string
	// Logger configuration file URL.
	LogCfgFile string
	// Log level overriding the level of the logger configuration.
	LogLevel string
	// Metrics are enabled by the flag before the command line is parsed,
	// the field is here for the help text only.
	Metrics bool
}

const (
	// The prefix for configuration keys inside environment.
	envPrefix = "CA"
	// The default name for config file.
	defaultConfigFile = "config.props"
	// the default chain authority directory.
	defaultHomeDir = ".chainauthority"
	// The default logger configuration file name.
	defaultLoggerConfigFile = "logger-config.yaml"
	// The configuration key for home directory.
	keyHome = "home"
	// The configuration key for config file name.
	keyConfig = "config"
	// Enables metrics collection
	keyMetrics = "metrics"

	flagNameLoggerCfgFile = "logger-config"
	flagNameLogLevel      = "log-level"
)

func (r *baseConfiguration) addConfigurationFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&r.HomeDir, keyHome, "", fmt.Sprintf("set the CA_HOME for this invocation (default is %s)", homeDir()))
	cmd.PersistentFlags().StringVar(&r.CfgFile, keyConfig, "", fmt.Sprintf("config file URL (default is $CA_HOME/%s)", defaultConfigFile))
	cmd.PersistentFlags().BoolVar(&r.Metrics, keyMetrics, false, "enables metrics collection")
	cmd.PersistentFlags().StringVar(&r.LogCfgFile, flagNameLoggerCfgFile, defaultLoggerConfigFile, "logger config file URL. Considered absolute if starts with '/'. Otherwise relative from $CA_HOME.")
	cmd.PersistentFlags().StringVar(&r.LogLevel, flagNameLogLevel, "", "logging level, one of: NONE, ERROR, WARNING, INFO, DEBUG, TRACE")
}

func (r *baseConfiguration) initConfigFileLocation() {
	// Home directory and config file are special configuration values as these are used for loading in rest of the configuration.
	// Handle these manually, before other configuration loaded with Viper.
	if r.HomeDir == "" {
		r.HomeDir = os.Getenv(envKey(keyHome))
		if r.HomeDir == "" {
			r.HomeDir = homeDir()
		}
	}

	if r.CfgFile == "" {
		r.CfgFile = os.Getenv(envKey(keyConfig))
		if r.CfgFile == "" {
			r.CfgFile = defaultConfigFile
		}
	}
	if !filepath.IsAbs(r.CfgFile) {
		r.CfgFile = filepath.Join(r.HomeDir, r.CfgFile)
	}
}

// LoggerCfgFilename returns the logger configuration file path, relative
// paths are resolved from the home directory.
func (r *baseConfiguration) LoggerCfgFilename() string {
	if !filepath.IsAbs(r.LogCfgFile) {
		return filepath.Join(r.HomeDir, r.LogCfgFile)
	}
	return r.LogCfgFile
}

func (r *baseConfiguration) configFileExists() bool {
	_, err := os.Stat(r.CfgFile)
	return err == nil
}

func (r *baseConfiguration) initLogger() error {
	if fileName := r.LoggerCfgFilename(); fileExists(fileName) {
		if err := logger.UpdateGlobalConfigFromFile(fileName); err != nil {
			return fmt.Errorf("loading logger configuration from %s: %w", fileName, err)
		}
	} else {
		logger.InitializeGlobalLogger()
	}
	if r.LogLevel != "" {
		lvl := logger.LevelFromString(strings.ToUpper(r.LogLevel))
		logger.SetDefaultLevel(lvl)
	}
	return nil
}

// homeDir returns the default home directory, $HOME/.chainauthority
func homeDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		panic("default user home dir not defined: " + err.Error())
	}
	return filepath.Join(dir, defaultHomeDir)
}

func envKey(key string) string {
	return strings.ToUpper(envPrefix + "_" + key)
}

func fileExists(fileName string) bool {
	_, err := os.Stat(fileName)
	return err == nil
}

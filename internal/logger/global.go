package logger

import (
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultTimeLocation = "Local"

type globalFactory struct {
	sync.Mutex
	config                  GlobalConfig
	loggers                 map[string]*ContextLogger
	consoleTimeFormat       string
	packageNameResolver     *PackageNameResolver
	nonAlphaNumericRegex    *regexp.Regexp
	globalLoggerInitialized bool
}

// Singleton for managing application wide logging.
var globalFactoryImpl = &globalFactory{
	loggers:              make(map[string]*ContextLogger),
	consoleTimeFormat:    "15:04:05.000000",
	packageNameResolver:  &PackageNameResolver{BasePackage: "alphabill-org/chainauthority"},
	nonAlphaNumericRegex: regexp.MustCompile(`[^a-zA-Z0-9]`),
}

// CreateForPackage creates logger named after the caller package.
func CreateForPackage() Logger {
	return Create(globalFactoryImpl.packageNameResolver.PackageName())
}

// Create creates custom named logger
func Create(name string) Logger {
	return globalFactoryImpl.create(name)
}

// UpdateGlobalConfig updates global config and updates all loggers accordingly.
func UpdateGlobalConfig(config GlobalConfig) {
	globalFactoryImpl.Lock()
	defer globalFactoryImpl.Unlock()

	globalFactoryImpl.updateFromConfig(config)
}

// UpdateGlobalConfigFromFile reads the file and parses it as YAML. Global logger configuration is updated accordingly.
// In case of an error, logger won't be updated.
func UpdateGlobalConfigFromFile(fileName string) error {
	conf, err := loadGlobalConfigFromFile(fileName)
	if err != nil {
		return err
	}
	UpdateGlobalConfig(conf)
	return nil
}

// SetDefaultLevel changes the level of all the loggers which do not have
// the package level configured.
func SetDefaultLevel(level LogLevel) {
	globalFactoryImpl.Lock()
	defer globalFactoryImpl.Unlock()

	globalFactoryImpl.config.DefaultLevel = level
	for name, logger := range globalFactoryImpl.loggers {
		logger.update(globalFactoryImpl.loggerLevel(name))
	}
}

// InitializeGlobalLogger initializes global logger with default configuration if it hasn't been initialized already.
func InitializeGlobalLogger() {
	globalFactoryImpl.Lock()
	defer globalFactoryImpl.Unlock()

	if !globalFactoryImpl.globalLoggerInitialized {
		globalFactoryImpl.updateFromConfig(developerConfiguration())
	}
}

func developerConfiguration() GlobalConfig {
	return GlobalConfig{
		DefaultLevel:  DEBUG,
		Writer:        os.Stdout,
		ConsoleFormat: true,
		ShowCaller:    true,
		TimeLocation:  defaultTimeLocation,
	}
}

func (gf *globalFactory) updateFromConfig(config GlobalConfig) {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	gf.config = config
	gf.updateOutputFormat()
	if config.TimeLocation != "" {
		gf.updateTimeLocation(config.TimeLocation)
	}
	for name, logger := range gf.loggers {
		logger.update(gf.loggerLevel(name))
	}
}

func (gf *globalFactory) updateTimeLocation(location string) {
	loc, err := time.LoadLocation(location)
	if err != nil {
		loc = time.Local
	}
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().In(loc)
	}
}

func (gf *globalFactory) updateOutputFormat() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	// levels are controlled per logger
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	var newGlobalLogger zerolog.Logger
	if gf.config.ConsoleFormat {
		newGlobalLogger = zerolog.New(zerolog.ConsoleWriter{
			Out:          gf.config.Writer,
			TimeFormat:   gf.consoleTimeFormat,
			FormatCaller: consoleFormatCallerLastTwoDirs,
		}).With().Timestamp().Logger()
	} else {
		newGlobalLogger = zerolog.New(gf.config.Writer).With().Timestamp().Logger()
	}
	if gf.config.ShowCaller {
		// frames of the ContextLogger wrapper
		newGlobalLogger = newGlobalLogger.With().CallerWithSkipFrameCount(4).Logger()
	}
	log.Logger = newGlobalLogger
	gf.globalLoggerInitialized = true
}

func (gf *globalFactory) create(name string) Logger {
	gf.Lock()
	defer gf.Unlock()

	normName := gf.nonAlphaNumericRegex.ReplaceAllString(name, "_")
	if logger, ok := gf.loggers[normName]; ok {
		return logger
	}
	// configuration can specify the log levels based on logger names,
	// each package is expected to create one named after the package.
	cl := newContextLogger(normName, gf.loggerLevel(normName))
	gf.loggers[normName] = cl
	return cl
}

func (gf *globalFactory) loggerLevel(loggerName string) LogLevel {
	if level, ok := gf.config.PackageLevels[loggerName]; ok {
		return level
	}
	return gf.config.DefaultLevel
}

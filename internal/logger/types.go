package logger

import "io"

type Logger interface {
	Trace(format string, args ...interface{})
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Error(format string, args ...interface{})
	// Changes logger level to the newLevel
	ChangeLevel(newLevel LogLevel)
}

type LogLevel uint

const (
	NONE LogLevel = iota
	ERROR
	WARNING
	INFO
	DEBUG
	TRACE
)

var levelNames = map[string]LogLevel{
	"NONE":    NONE,
	"ERROR":   ERROR,
	"WARNING": WARNING,
	"INFO":    INFO,
	"DEBUG":   DEBUG,
	"TRACE":   TRACE,
}

// LevelFromString returns the level by its name, unknown names map to DEBUG.
func LevelFromString(s string) LogLevel {
	if lvl, ok := levelNames[s]; ok {
		return lvl
	}
	return DEBUG
}

// GlobalConfig is the configuration shared by all the loggers.
type GlobalConfig struct {
	DefaultLevel LogLevel
	// PackageLevels overrides the default level for the named loggers.
	PackageLevels map[string]LogLevel
	Writer        io.Writer
	// ConsoleFormat writes human readable output instead of JSON.
	ConsoleFormat bool
	ShowCaller    bool
	TimeLocation  string
}

package logger

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ContextLogger struct {
	zeroLogger *zerolog.Logger
	name       string
	level      LogLevel
}

// newContextLogger creates the logger, but doesn't initialize it yet.
// This is needed, so loggers could be created in var phase. But the global log configuration added later.
func newContextLogger(name string, level LogLevel) *ContextLogger {
	return &ContextLogger{name: name, level: level}
}

func (c *ContextLogger) init() {
	InitializeGlobalLogger()
	c.update(c.level)
}

func (c *ContextLogger) update(level LogLevel) {
	c.level = level
	zeroLogger := log.Level(toZeroLevel(level)).With().Str("logger", c.name).Logger()
	c.zeroLogger = &zeroLogger
}

func (c *ContextLogger) Trace(format string, args ...interface{}) {
	c.logMessage(c.logger().Trace(), format, args)
}

func (c *ContextLogger) Debug(format string, args ...interface{}) {
	c.logMessage(c.logger().Debug(), format, args)
}

func (c *ContextLogger) Info(format string, args ...interface{}) {
	c.logMessage(c.logger().Info(), format, args)
}

func (c *ContextLogger) Warning(format string, args ...interface{}) {
	c.logMessage(c.logger().Warn(), format, args)
}

func (c *ContextLogger) Error(format string, args ...interface{}) {
	c.logMessage(c.logger().Error(), format, args)
}

func (c *ContextLogger) logger() *zerolog.Logger {
	if c.zeroLogger == nil {
		c.init()
	}
	return c.zeroLogger
}

func (c *ContextLogger) logMessage(event *zerolog.Event, format string, args []interface{}) {
	if len(args) == 0 {
		event.Msg(format)
	} else {
		event.Msgf(format, args...)
	}
}

// ChangeLevel changes the level of the context logger.
func (c *ContextLogger) ChangeLevel(newLevel LogLevel) {
	l := c.logger()
	c.level = newLevel
	*l = l.Level(toZeroLevel(newLevel))
}

func toZeroLevel(lvl LogLevel) zerolog.Level {
	switch lvl {
	case NONE:
		return zerolog.Disabled
	case TRACE:
		return zerolog.TraceLevel
	case DEBUG:
		return zerolog.DebugLevel
	case INFO:
		return zerolog.InfoLevel
	case WARNING:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		panic(fmt.Sprintf("unknown level: %d", lvl))
	}
}

package log

import (
	"github.com/kataras/golog"
)

// gologLevels maps ragrouter levels onto golog's own; golog filters again
// so output written directly through the wrapped logger obeys SetLevel too.
var gologLevels = map[LogLevel]golog.Level{
	LogLevelDebug: golog.DebugLevel,
	LogLevelInfo:  golog.InfoLevel,
	LogLevelWarn:  golog.WarnLevel,
	LogLevelError: golog.ErrorLevel,
	LogLevelNone:  golog.DisableLevel,
}

// GologLogger is the Logger used by the ragrouter command and the default
// package logger. It drops messages below its level before formatting.
type GologLogger struct {
	logger *golog.Logger
	level  LogLevel
}

var _ Logger = (*GologLogger)(nil)

// NewGologLogger wraps logger at info level.
func NewGologLogger(logger *golog.Logger) *GologLogger {
	return &GologLogger{
		logger: logger,
		level:  LogLevelInfo,
	}
}

func (l *GologLogger) enabled(level LogLevel) bool {
	return l.level <= level
}

func (l *GologLogger) Debug(format string, v ...any) {
	if l.enabled(LogLevelDebug) {
		l.logger.Debugf(format, v...)
	}
}

func (l *GologLogger) Info(format string, v ...any) {
	if l.enabled(LogLevelInfo) {
		l.logger.Infof(format, v...)
	}
}

func (l *GologLogger) Warn(format string, v ...any) {
	if l.enabled(LogLevelWarn) {
		l.logger.Warnf(format, v...)
	}
}

func (l *GologLogger) Error(format string, v ...any) {
	if l.enabled(LogLevelError) {
		l.logger.Errorf(format, v...)
	}
}

// SetLevel changes the level of the wrapper and of the golog logger.
// Unknown levels fall back to info.
func (l *GologLogger) SetLevel(level LogLevel) {
	gl, ok := gologLevels[level]
	if !ok {
		level, gl = LogLevelInfo, golog.InfoLevel
	}
	l.level = level
	l.logger.Level = gl
}

func (l *GologLogger) GetLevel() LogLevel {
	return l.level
}

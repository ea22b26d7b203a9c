package logging

import (
	"context"

	"securequiz/internal/utils/id"
)

type logIDCapable interface {
	WithLogID(string) Logger
}

// WithLogID returns a logger that tags log lines with a log id.
func WithLogID(logger Logger, logID string) Logger {
	if IsNil(logger) {
		return Nop()
	}
	if logID == "" {
		return logger
	}
	if capable, ok := logger.(logIDCapable); ok {
		return capable.WithLogID(logID)
	}
	return &logIDLogger{logger: logger, logID: logID}
}

// FromContext returns logger tagged with the log id found in ctx, if any.
func FromContext(ctx context.Context, logger Logger) Logger {
	return WithLogID(logger, id.LogIDFromContext(ctx))
}

type logIDLogger struct {
	logger Logger
	logID  string
}

func (l *logIDLogger) Debug(format string, args ...any) {
	l.logger.Debug("logid="+l.logID+" "+format, args...)
}

func (l *logIDLogger) Info(format string, args ...any) {
	l.logger.Info("logid="+l.logID+" "+format, args...)
}

func (l *logIDLogger) Warn(format string, args ...any) {
	l.logger.Warn("logid="+l.logID+" "+format, args...)
}

func (l *logIDLogger) Error(format string, args ...any) {
	l.logger.Error("logid="+l.logID+" "+format, args...)
}

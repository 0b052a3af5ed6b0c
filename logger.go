package vellum

import "go.uber.org/zap"

// Logger is the minimal sink the core writes info/warn/error lines to
// (spec.md §6 "logger"), kept identical to the teacher's Logger
// contract so callers can drop in their own implementation without
// adapters.
type Logger interface {
	Print(v ...interface{})
	Printf(format string, args ...interface{})
}

// zapLogger adapts *zap.SugaredLogger to Logger; the default logger
// (spec.md §6 "logger: console").
type zapLogger struct {
	s *zap.SugaredLogger
}

// NewLogger builds the default console logger, backed by zap in
// production configuration.
func NewLogger() Logger {
	z, err := zap.NewProduction()
	if err != nil {
		z = zap.NewNop()
	}
	return &zapLogger{s: z.Sugar()}
}

func (l *zapLogger) Print(v ...interface{})                 { l.s.Info(v...) }
func (l *zapLogger) Printf(format string, args ...interface{}) { l.s.Infof(format, args...) }

type noopLogger struct{}

// NewNoopLogger returns a Logger that discards everything, useful for
// tests.
func NewNoopLogger() Logger { return noopLogger{} }

func (noopLogger) Print(v ...interface{})                  {}
func (noopLogger) Printf(format string, args ...interface{}) {}

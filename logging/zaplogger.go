package logging

import "go.uber.org/zap"

var nop = NewNopLogger()

// New returns a logger for the given format, "dev" for human readable output
// and anything else for JSON.
func New(format string) Logger {
	if format == "dev" {
		return NewDevLogger()
	}
	return NewProdLogger()
}

// NewDevLogger returns a zap logger that prints dev friendly output.
func NewDevLogger() Logger {
	l, _ := zap.NewDevelopment(zap.AddCallerSkip(2))
	return &ZapLogger{z: l.Sugar()}
}

// NewProdLogger returns a zap logger that outputs JSON.
func NewProdLogger() Logger {
	l, _ := zap.NewProduction(zap.AddCallerSkip(2))
	return &ZapLogger{z: l.Sugar()}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return &ZapLogger{z: zap.NewNop().Sugar()}
}

// NewZapLogger adapts an existing zap logger, e.g. one built on an observer
// core in tests.
func NewZapLogger(l *zap.Logger) Logger {
	return &ZapLogger{z: l.Sugar()}
}

// ZapLogger is a logging adapter for a Zap Sugared Logger.
type ZapLogger struct {
	z *zap.SugaredLogger
}

// Sync flushes buffered log entries.
func (z *ZapLogger) Sync() error {
	return z.z.Sync()
}

func (z *ZapLogger) Debug(args ...any) {
	z.z.Debug(args...)
}

func (z *ZapLogger) Debugw(msg string, keysAndValues ...any) {
	z.z.Debugw(msg, keysAndValues...)
}

func (z *ZapLogger) Debugf(msg string, args ...any) {
	z.z.Debugf(msg, args...)
}

func (z *ZapLogger) Info(args ...any) {
	z.z.Info(args...)
}

func (z *ZapLogger) Infow(msg string, keysAndValues ...any) {
	z.z.Infow(msg, keysAndValues...)
}

func (z *ZapLogger) Infof(msg string, args ...any) {
	z.z.Infof(msg, args...)
}

func (z *ZapLogger) Warn(args ...any) {
	z.z.Warn(args...)
}

func (z *ZapLogger) Warnw(msg string, keysAndValues ...any) {
	z.z.Warnw(msg, keysAndValues...)
}

func (z *ZapLogger) Warnf(msg string, args ...any) {
	z.z.Warnf(msg, args...)
}

func (z *ZapLogger) Error(args ...any) {
	z.z.Error(args...)
}

func (z *ZapLogger) Errorw(msg string, keysAndValues ...any) {
	z.z.Errorw(msg, keysAndValues...)
}

func (z *ZapLogger) Errorf(msg string, args ...any) {
	z.z.Errorf(msg, args...)
}

func (z *ZapLogger) Named(name string) Logger {
	return &ZapLogger{z: z.z.Named(name)}
}

func (z *ZapLogger) With(field string, value any) Logger {
	return &ZapLogger{z: z.z.With(field, value)}
}

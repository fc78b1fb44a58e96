// Package logging provides a context scoped, structured logger. Components
// never hold a logger directly; they pull one from the context they were
// handed so callers control naming and fields.
package logging

import "context"

type ctxkey struct {
	logger Logger
}

// With attaches a logger to the context.
//
// This can be used to create logging scopes like so:
//
//	ctx = logging.With(ctx, logging.FromContext(ctx).Named("session"))
//	store.Hydrate(ctx)
func With(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, ctxkey{}, &ctxkey{
		logger: logger,
	})
}

// FromContext returns a scoped logger, or nil if none was attached.
func FromContext(ctx context.Context) Logger {
	c, ok := ctx.Value(ctxkey{}).(*ctxkey)
	if ok {
		return c.logger
	}
	return nil
}

// EnsureLogger returns a context that is guaranteed to carry a logger. If ctx
// already has one it is returned unchanged, otherwise a no-op logger is
// attached.
func EnsureLogger(ctx context.Context) context.Context {
	if FromContext(ctx) != nil {
		return ctx
	}
	return With(ctx, NewNopLogger())
}

// Track a field across the lifetime of the context. Tracked values are visible
// to every later log line made with the same scope, including in callers. Do
// not use this in loops without first creating a new scope with With.
func Track(ctx context.Context, field string, value any) {
	c, ok := ctx.Value(ctxkey{}).(*ctxkey)
	if ok {
		c.logger = c.logger.With(field, value)
	}
}

// Logger provides an abstract logging interface designed around uber-go/zap's
// sugared logger.
type Logger interface {
	Debug(args ...any)
	Debugw(msg string, keysAndValues ...any)
	Debugf(msg string, args ...any)
	Info(args ...any)
	Infow(msg string, keysAndValues ...any)
	Infof(msg string, args ...any)
	Warn(args ...any)
	Warnw(msg string, keysAndValues ...any)
	Warnf(msg string, args ...any)
	Error(args ...any)
	Errorw(msg string, keysAndValues ...any)
	Errorf(msg string, args ...any)

	// Named creates a child logger with the given name.
	Named(name string) Logger

	// With creates a child logger and attaches structured context to it.
	With(field string, value any) Logger
}

func logger(ctx context.Context) Logger {
	if l := FromContext(ctx); l != nil {
		return l
	}
	return nop
}

func Debug(ctx context.Context, msg string) {
	logger(ctx).Debug(msg)
}

func Debugw(ctx context.Context, msg string, fields ...any) {
	logger(ctx).Debugw(msg, fields...)
}

func Debugf(ctx context.Context, msg string, args ...any) {
	logger(ctx).Debugf(msg, args...)
}

func Info(ctx context.Context, msg string) {
	logger(ctx).Info(msg)
}

func Infow(ctx context.Context, msg string, fields ...any) {
	logger(ctx).Infow(msg, fields...)
}

func Infof(ctx context.Context, msg string, args ...any) {
	logger(ctx).Infof(msg, args...)
}

func Warn(ctx context.Context, msg string) {
	logger(ctx).Warn(msg)
}

func Warnw(ctx context.Context, msg string, fields ...any) {
	logger(ctx).Warnw(msg, fields...)
}

func Warnf(ctx context.Context, msg string, args ...any) {
	logger(ctx).Warnf(msg, args...)
}

func Error(ctx context.Context, msg string) {
	logger(ctx).Error(msg)
}

func Errorw(ctx context.Context, msg string, fields ...any) {
	logger(ctx).Errorw(msg, fields...)
}

func Errorf(ctx context.Context, msg string, args ...any) {
	logger(ctx).Errorf(msg, args...)
}

package viewkit

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a structured logger. Fields attached to the context with WithLogFields are added to every entry.
type Logger interface {
	Error(ctx context.Context, msg string, err error, tags map[string]any)
	Info(ctx context.Context, msg string, tags map[string]any)
	Debug(ctx context.Context, msg string, tags map[string]any)
	Warn(ctx context.Context, msg string, tags map[string]any)
}

type logFieldsKey struct{}

// WithLogFields returns a context carrying fields that are added to every log entry written with it
func WithLogFields(ctx context.Context, tags map[string]any) context.Context {
	merged := map[string]any{}
	for k, v := range LogFields(ctx) {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}
	return context.WithValue(ctx, logFieldsKey{}, merged)
}

// LogFields returns the log fields attached to the context
func LogFields(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	tags, _ := ctx.Value(logFieldsKey{}).(map[string]any)
	return tags
}

type zapLogger struct {
	logger *zap.Logger
}

// NewLogger returns a structured json logger with the given level and default fields
func NewLogger(level string, defaultFields map[string]any) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(getLevel(level))
	logger, err := cfg.Build(zap.WithCaller(true), zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return newZapLogger(logger, defaultFields), nil
}

// NewNopLogger returns a logger that discards every entry
func NewNopLogger() Logger {
	return zapLogger{logger: zap.NewNop()}
}

func newZapLogger(logger *zap.Logger, defaultFields map[string]any) Logger {
	return zapLogger{logger: logger.With(fields(nil, defaultFields)...)}
}

func (z zapLogger) Error(ctx context.Context, msg string, err error, tags map[string]any) {
	z.logger.Error(msg, append(fields(ctx, tags), zap.Error(err))...)
}

func (z zapLogger) Info(ctx context.Context, msg string, tags map[string]any) {
	z.logger.Info(msg, fields(ctx, tags)...)
}

func (z zapLogger) Debug(ctx context.Context, msg string, tags map[string]any) {
	z.logger.Debug(msg, fields(ctx, tags)...)
}

func (z zapLogger) Warn(ctx context.Context, msg string, tags map[string]any) {
	z.logger.Warn(msg, fields(ctx, tags)...)
}

// fields merges context fields with tags, tags win
func fields(ctx context.Context, tags map[string]any) []zap.Field {
	scoped := LogFields(ctx)
	f := make([]zap.Field, 0, len(scoped)+len(tags))
	for k, v := range scoped {
		if _, ok := tags[k]; ok {
			continue
		}
		f = append(f, zap.Any(k, v))
	}
	for k, v := range tags {
		f = append(f, zap.Any(k, v))
	}
	return f
}

func getLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "error":
		return zap.ErrorLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "debug":
		return zap.DebugLevel
	default:
		return zap.InfoLevel
	}
}

package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the application logger. Messages take alternating key/value pairs.
type Logger struct {
	sugar *zap.SugaredLogger
}

// Options controls how the logger is built.
type Options struct {
	Level  string
	Format string
}

// NewLogger creates a new Logger. Format "console" selects the human readable
// development encoder, anything else produces JSON.
func NewLogger(opts Options) (*Logger, error) {
	var cfg zap.Config
	if strings.EqualFold(opts.Format, "console") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			return nil, err
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: z.Sugar()}, nil
}

// New wraps an existing zap logger.
func New(z *zap.Logger) *Logger {
	return &Logger{sugar: z.Sugar()}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return New(zap.NewNop())
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...)}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Info logs an informational message.
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warn logs a warning.
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

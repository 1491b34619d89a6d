package logging

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey int

const loggerKey ctxKey = iota

var (
	defaultLogger     *zap.Logger
	defaultLoggerOnce sync.Once
)

// Options selects the encoder and level of a logger.
// Empty fields fall back to the ENV and LOG_LEVEL environment variables.
type Options struct {
	Env   string // "dev"/"development" for a console encoder, anything else for JSON
	Level string // debug, info, warn, error
}

func (o Options) withEnv() Options {
	if o.Env == "" {
		o.Env = os.Getenv("ENV")
	}
	if o.Level == "" {
		o.Level = os.Getenv("LOG_LEVEL")
	}
	return o
}

// New builds a zap logger for the translator processes.
func New(opts Options) (*zap.Logger, error) {
	opts = opts.withEnv()

	var config zap.Config
	if opts.Env == "dev" || opts.Env == "development" {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.DisableCaller = false
	}

	if opts.Level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(opts.Level)); err == nil {
			config.Level = zap.NewAtomicLevelAt(level)
		}
	}

	return config.Build()
}

// NewLogger is New with options taken from the environment only.
// It exits the process when the logger cannot be built.
func NewLogger() *zap.Logger {
	logger, err := New(Options{})
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to create logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	return logger
}

// DefaultLogger returns the process-wide logger.
func DefaultLogger() *zap.Logger {
	defaultLoggerOnce.Do(func() {
		defaultLogger = NewLogger()
	})
	return defaultLogger
}

// SetDefault installs the process-wide logger. It has no effect once
// DefaultLogger or SetDefault has already run.
func SetDefault(logger *zap.Logger) {
	defaultLoggerOnce.Do(func() {
		defaultLogger = logger
	})
}

// WithLogger attaches a logger to ctx.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return DefaultLogger()
	}
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return DefaultLogger()
}

func L(ctx context.Context) *zap.Logger {
	return FromContext(ctx)
}

// WithFields adds structured fields to the logger in context.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(fields...))
}

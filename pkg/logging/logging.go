package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger Logger

func init() {
	logger, err := NewLogger(os.Getenv("LOG_LEVEL"), "console", nil)
	if err != nil {
		panic(err)
	}
	globalLogger = logger
}

// NewLogger builds a zap-backed Logger. format is "json" or "console";
// a nil output writes to stderr.
func NewLogger(level, format string, output zapcore.WriteSyncer) (Logger, error) {
	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	if level != "" {
		var zapLevel zapcore.Level
		if err := zapLevel.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	if output != nil {
		var encoder zapcore.Encoder
		if format == "json" {
			encoder = zapcore.NewJSONEncoder(cfg.EncoderConfig)
		} else {
			encoder = zapcore.NewConsoleEncoder(cfg.EncoderConfig)
		}
		logger = zap.New(zapcore.NewCore(encoder, output, cfg.Level))
	}
	return &zapLogger{logger.Sugar()}, nil
}

// InitLogger replaces the global logger. An unknown level falls back to info.
func InitLogger(level string, format string, output zapcore.WriteSyncer) {
	logger, err := NewLogger(level, format, output)
	if err != nil {
		logger, err = NewLogger("", format, output)
		if err != nil {
			panic(err)
		}
		logger.Warn("ignoring log level", "level", level)
	}
	globalLogger = logger
}

// GetLogger returns the global logger instance.
func GetLogger() Logger {
	return globalLogger
}

// zapLogger is a wrapper around zap.SugaredLogger that implements our Logger interface.
type zapLogger struct {
	*zap.SugaredLogger
}

func (l *zapLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
}

func (l *zapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
}

func (l *zapLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
}

func (l *zapLogger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
}

// With creates a child logger and adds structured context to it.
func (l *zapLogger) With(keysAndValues ...interface{}) Logger {
	return &zapLogger{l.SugaredLogger.With(keysAndValues...)}
}

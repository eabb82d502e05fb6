package testutils

import (
	"io"

	"github.com/wfshape/wfshape/pkg/logging"
	"go.uber.org/zap/zapcore"
)

// NewTestLogger creates a new logger for testing that discards output.
func NewTestLogger() logging.Logger {
	logger, err := logging.NewLogger("debug", "console", zapcore.AddSync(io.Discard))
	if err != nil {
		panic(err)
	}
	return logger
}

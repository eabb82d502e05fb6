//go:generate mockgen -package=mocks -destination=../../mocks/mock_logger.go github.com/wfshape/wfshape/pkg/logging Logger

package logging

// Logger is the structured logger used across the toolkit.
// Batch runners report per-file problems through Warn and keep going.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	With(keysAndValues ...interface{}) Logger
}

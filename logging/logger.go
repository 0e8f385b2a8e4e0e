// Package logging defines the leveled logger the hooks report to.
package logging

// Logger provides structured logging for hook operations.
// Fields are alternating key/value pairs.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// NoOpLogger is a logger that does nothing
type NoOpLogger struct{}

func (NoOpLogger) Debug(msg string, fields ...any) {}
func (NoOpLogger) Info(msg string, fields ...any)  {}
func (NoOpLogger) Warn(msg string, fields ...any)  {}
func (NoOpLogger) Error(msg string, fields ...any) {}

// OrNoOp returns l, or a NoOpLogger when l is nil.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NoOpLogger{}
	}
	return l
}

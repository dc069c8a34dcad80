package modgraph

import "log/slog"

// Logger defines the interface for engine logging.
// It uses structured key-value pairs:
//
//	logger.Info("message", "key1", "value1", "key2", "value2")
//
// which maps directly onto slog, logrus, zap and similar libraries.
type Logger interface {
	// Info logs normal events such as a snapshot load.
	Info(msg string, args ...any)

	// Error logs failed operations, e.g. a rejected gateway call.
	Error(msg string, args ...any)

	// Warn logs unusual but tolerated conditions, e.g. a partially failed batch.
	Warn(msg string, args ...any)

	// Debug logs detailed diagnostics such as every committed mutation.
	Debug(msg string, args ...any)
}

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps l. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l}
}

func (l *SlogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *SlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *SlogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// With returns a logger that prepends args to every record.
func (l *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{logger: l.logger.With(args...)}
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}

package stash

// Fields carries structured context for a log line (key, namespace, sizes, err).
type Fields map[string]any

// Logger is the leveled logger Store and Cache write to. Adapters for zap,
// logrus and log/slog live under log/. A nil StoreOptions.Logger means NopLogger.
//
// Store and Cache log persists and sweeps at Debug, corrupt entries at Warn and
// failed cache persists at Error.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}

package logger

// Logger is a minimal structured logging interface. Implementations accept
// alternating key/value pairs as variadic arguments, which keeps the
// interface small and easy to mock in tests.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

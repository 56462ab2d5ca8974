package rpc

import "log"

// Logger is the minimal logging capability the endpoint needs: an info
// level for routine events and a warn level for dropped/rejected envelopes.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// defaultLogger backs onto the standard library's log package when the
// caller does not supply one, so every endpoint has somewhere to report
// dropped envelopes without requiring callers to configure a logger first.
type defaultLogger struct {
	std *log.Logger
}

func newDefaultLogger() *defaultLogger {
	return &defaultLogger{std: log.Default()}
}

func (l *defaultLogger) Infof(format string, args ...any) {
	l.std.Printf("INFO "+format, args...)
}

func (l *defaultLogger) Warnf(format string, args ...any) {
	l.std.Printf("WARN "+format, args...)
}

// NopLogger discards everything; useful in tests that assert on behavior,
// not log output.
type NopLogger struct{}

func (NopLogger) Infof(format string, args ...any) {}
func (NopLogger) Warnf(format string, args ...any) {}

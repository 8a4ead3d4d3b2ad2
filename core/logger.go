package core

// Logger is any leveled logger that can ship errors to an external tracker.
// Args may carry errors, maps or a user object for extra context; implementations
// decide what to do with each.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

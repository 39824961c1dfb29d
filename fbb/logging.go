package fbb

import "log/slog"

// Package-level default logger indirection, copied in structure from
// sip/logger.go: the core never chooses a sink, callers install one.
var defLogger *slog.Logger

// SetDefaultLogger installs the logger used by Sessions constructed
// without an explicit WithLogger option. Call before constructing any
// Session.
func SetDefaultLogger(l *slog.Logger) {
	defLogger = l
}

// DefaultLogger returns the installed default logger, or slog.Default()
// if none was installed.
func DefaultLogger() *slog.Logger {
	if defLogger != nil {
		return defLogger
	}
	return slog.Default()
}

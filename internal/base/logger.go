// Package base holds primitives shared by the scan engine and the tablet
// manager: the logging interface and the status/error taxonomy.
package base

import (
	"fmt"
	"log"
	"os"
)

// Logger defines an interface for writing log messages.
type Logger interface {
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// DefaultLogger logs to the Go stdlib logs.
type DefaultLogger struct{}

// Infof implements Logger.
func (DefaultLogger) Infof(format string, args ...interface{}) {
	_ = log.Output(2, fmt.Sprintf("INFO: "+format, args...))
}

// Warningf implements Logger.
func (DefaultLogger) Warningf(format string, args ...interface{}) {
	_ = log.Output(2, fmt.Sprintf("WARN: "+format, args...))
}

// Fatalf implements Logger.
func (DefaultLogger) Fatalf(format string, args ...interface{}) {
	_ = log.Output(2, fmt.Sprintf("FATAL: "+format, args...))
	os.Exit(1)
}

// NoopLogger discards all messages. Useful in tests that want quiet output.
type NoopLogger struct{}

func (NoopLogger) Infof(string, ...interface{})    {}
func (NoopLogger) Warningf(string, ...interface{}) {}
func (NoopLogger) Fatalf(string, ...interface{})   {}

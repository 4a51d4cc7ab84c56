package kvlite

import (
	"log"
)

// Logger receives the few lifecycle events of a DB: snapshot loading,
// journal replay and recovery, saving. args are key-value pairs, so that
// *slog.Logger satisfies it directly.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	_ Logger = nopLogger{}
	_ Logger = stdLogger{}
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// stdLogger writes through the standard log package.
type stdLogger struct{}

// NewStdLogger returns a Logger printing with the standard log package.
func NewStdLogger() Logger { return stdLogger{} }

func (stdLogger) Info(msg string, args ...any)  { stdLog("INFO", msg, args) }
func (stdLogger) Warn(msg string, args ...any)  { stdLog("WARN", msg, args) }
func (stdLogger) Error(msg string, args ...any) { stdLog("ERROR", msg, args) }

func stdLog(level, msg string, args []any) {
	format := "kvlite: %s %s"
	params := []any{level, msg}
	for i := 0; i+1 < len(args); i += 2 {
		format += " %v=%v"
		params = append(params, args[i], args[i+1])
	}
	log.Printf(format, params...)
}

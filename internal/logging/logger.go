// Package logging provides the application logger.
package logging

import (
	"log"
	"os"

	"ecoquest/internal/config"
)

// Logger is the leveled logger used by services and handlers.
// args are extra values (errors, maps, models.Identity) printed after msg.
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// StdLogger writes to a standard library logger
type StdLogger struct {
	std *log.Logger
}

var _ Logger = (*StdLogger)(nil)

// NewStdLogger wraps std; a nil std logs to stderr with the default flags
func NewStdLogger(std *log.Logger) *StdLogger {
	if std == nil {
		std = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &StdLogger{std: std}
}

func (l StdLogger) print(level, msg string, args []interface{}) {
	l.std.Printf("%s %s", level, msg)
	for _, arg := range args {
		l.std.Printf("  %+v", arg)
	}
}

func (l StdLogger) Info(msg string, args ...interface{}) {
	l.print("INFO", msg, args)
}

func (l StdLogger) Warn(msg string, args ...interface{}) {
	l.print("WARN", msg, args)
}

func (l StdLogger) Error(msg string, args ...interface{}) {
	l.print("ERROR", msg, args)
}

// New returns the Rollbar logger when a token is configured, otherwise a StdLogger
func New(cfg *config.Config) Logger {
	std := log.New(os.Stderr, "", log.LstdFlags)
	if cfg.RollbarToken == "" {
		return NewStdLogger(std)
	}
	l := NewRollbarLogger(std, cfg)
	l.Enable(!cfg.Debug)
	return l
}

// Nop discards everything; used by tests
type Nop struct{}

func (Nop) Info(string, ...interface{})  {}
func (Nop) Warn(string, ...interface{})  {}
func (Nop) Error(string, ...interface{}) {}

// Package debug provides global debug/verbose logging control
package debug

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Verbose controls whether debug output is enabled. It is read on every
// call so flag parsing may set it after init.
var Verbose bool

var log = newLogger(os.Stderr)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
	})
	return l
}

// Logger returns the shared logger. Library packages attach fields such as
// the message id or command before logging.
func Logger() *logrus.Entry {
	if Verbose && log.GetLevel() < logrus.DebugLevel {
		log.SetLevel(logrus.DebugLevel)
	}
	return logrus.NewEntry(log)
}

// SetOutput redirects all log output, e.g. to a rotating file.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// SetLevel sets the minimum level that is emitted.
func SetLevel(level logrus.Level) {
	log.SetLevel(level)
}

// SetJSON switches to JSON-formatted records.
func SetJSON() {
	log.SetFormatter(&logrus.JSONFormatter{})
}

// Printf prints debug output if verbose mode is enabled
func Printf(format string, args ...interface{}) {
	if Verbose {
		Logger().Debugf(format, args...)
	}
}

// Println prints debug output if verbose mode is enabled
func Println(args ...interface{}) {
	if Verbose {
		Logger().Debugln(args...)
	}
}

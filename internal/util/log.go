package util

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the process wide logger, all diagnostics go to stderr
// so that stdout stays clean for the credential_process payload.
var Logger = newLogger(os.Stderr)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetVerbose toggles debug output
func SetVerbose(verbose bool) {
	if verbose {
		Logger.SetLevel(logrus.DebugLevel)
		return
	}
	Logger.SetLevel(logrus.InfoLevel)
}

// SetOutput redirects the logger, used by tests to capture output
func SetOutput(out io.Writer) {
	Logger.SetOutput(out)
}

func Writeln(format string, msg ...interface{}) {
	Logger.Infof(format, msg...)
}

func Traceln(format string, msg ...interface{}) {
	Logger.Debugf(format, msg...)
}

// Exit logs the error and exits non-zero
func Exit(err error) {
	Logger.Error(err)
	os.Exit(1)
}

// Mask keeps the first 4 characters of a secret value
func Mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

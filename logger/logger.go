// Package logger configures the process-wide logrus instance.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the shared application logger. Call Init once from main before use.
var Log = logrus.New()

// Init applies LOG_LEVEL and LOG_FORMAT from the environment.
// LOG_LEVEL defaults to "info"; LOG_FORMAT accepts "json" or "text".
func Init() {
	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	Log.SetOutput(os.Stdout)
}

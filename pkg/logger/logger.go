// Package logger builds loggers of eoflow processes.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// EnvLevel is the environment variable which overrides the level given to FromEnv.
const EnvLevel = "EOFLOW_LOG_LEVEL"

// New returns a logger writing text to stderr.
//
// Unknown levels fall back to info.
func New(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	lv, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lv = logrus.InfoLevel
	}
	logger.SetLevel(lv)
	return logger
}

// FromEnv is New with the level of EOFLOW_LOG_LEVEL, or def when it is not set.
func FromEnv(def string) *logrus.Logger {
	if lv := os.Getenv(EnvLevel); lv != "" {
		return New(lv)
	}
	return New(def)
}

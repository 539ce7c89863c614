// Package logger provides structured logging for the pipeline. Jobs and
// the ingest/fan-out/settlement passes log through the typed wrappers so
// field names stay consistent across the codebase.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates the process logger. Production emits JSON for log
// aggregation; everything else gets human-readable text output.
func NewLogger(logLevel string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		log.Warnf("Invalid log level '%s', defaulting to info", logLevel)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if os.Getenv("ENVIRONMENT") == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}

	return log
}

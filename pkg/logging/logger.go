// Package logging builds the structured logger every component takes by
// constructor injection. The teacher's ConsoleLogger::shared_instance-style
// global singleton is replaced here with a plain constructor: callers wire
// the *logrus.Logger they get back into whatever needs it, there is no
// process-wide accessor.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a JSON-formatted logger at the given level, writing to
// output ("stdout" or a file path).
func New(level, output string) *logrus.Logger {
	logger := logrus.New()

	switch level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if output == "stdout" || output == "" {
		logger.SetOutput(os.Stdout)
	} else {
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logger.SetOutput(file)
		} else {
			logger.SetOutput(os.Stdout)
			logger.WithError(err).Warnf("logging: failed to open log file %s, using stdout", output)
		}
	}

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	return logger
}

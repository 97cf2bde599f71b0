package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger

func init() {
	logger = logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	logger.SetOutput(os.Stdout)
}

func Logger() *logrus.Logger {
	return logger
}

// RowError logs a per-row failure with enough fields for operator triage.
func RowError(rowKey string, err error, fields logrus.Fields) {
	entry := logger.WithField("rowKey", rowKey)
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Error(err.Error())
}

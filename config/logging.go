package config

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// LogWriter is the writer used for application and database logs.
var LogWriter io.Writer = os.Stdout

// InitLogging prepares the log file and points logrus at stdout plus that file.
// The returned file is nil when the log file could not be opened.
func InitLogging(s *Settings) *os.File {
	if s.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logrus.SetLevel(logrus.DebugLevel)
	}

	logPath := filepath.Dir(s.LogFile)
	if err := os.MkdirAll(logPath, os.ModePerm); err != nil {
		logrus.Warnf("Failed to create logs directory: %v", err)
	}

	logFile, err := os.OpenFile(s.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logrus.Warnf("Failed to open log file: %v", err)
		LogWriter = os.Stdout
		logrus.SetOutput(LogWriter)
		return nil
	}

	LogWriter = io.MultiWriter(os.Stdout, logFile)
	logrus.SetOutput(LogWriter)
	return logFile
}

package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// ConfigureLogging applies the level and formatter from cfg to the standard
// logrus logger. Unknown levels fall back to info.
func ConfigureLogging(cfg Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

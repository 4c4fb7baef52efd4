// Package logging configures the application logger.
package logging

import (
	"github.com/sirupsen/logrus"
)

// New builds a logrus logger from the configured level and format.
// Unknown values fall back to info/text rather than failing startup.
func New(level, format string) *logrus.Logger {
	log := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

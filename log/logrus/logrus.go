// Package logrus adapts a *logrus.Entry to cache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-repository-service/cache"
)

var _ cache.Logger = Logger{}

// Logger writes cache.Logger calls to a logrus entry.
type Logger struct{ E *logrus.Entry }

// New wraps l with a component field.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "repository_service")}
}

func (l Logger) Debug(msg string, f cache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l Logger) Info(msg string, f cache.Fields) { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l Logger) Warn(msg string, f cache.Fields) { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l Logger) Error(msg string, f cache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}

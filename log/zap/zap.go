// Package zap adapts a *zap.Logger to cache.Logger.
package zap

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-repository-service/cache"
)

var _ cache.Logger = Logger{}

// Logger writes cache.Logger calls to a *zap.Logger, one zap field per
// cache field.
type Logger struct{ L *zap.Logger }

// New wraps l, naming it for the repository service.
func New(l *zap.Logger) Logger {
	return Logger{L: l.Named("repository_service")}
}

func (z Logger) Debug(msg string, f cache.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f cache.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f cache.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f cache.Fields) { z.L.Error(msg, fields(f)...) }

func fields(f cache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}

package cacheinfra

import (
	"errors"
	"time"
)

// SetMode selects how a Set call applies expiry.
type SetMode string

const (
	// ModeEX expires the key after ttl, rounded down to whole seconds.
	ModeEX SetMode = "EX"
	// ModePX expires the key after ttl, with millisecond precision.
	ModePX SetMode = "PX"
	// ModeKeepTTL keeps whatever expiry the key already had.
	ModeKeepTTL SetMode = "KEEPTTL"
)

// ErrSetRejected is returned when an in-process store drops a write under
// memory pressure.
var ErrSetRejected = errors.New("cacheinfra: set rejected by store")

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// expiryFor resolves the effective ttl for a mode. A zero result means the
// key does not expire.
func expiryFor(mode SetMode, ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	switch mode {
	case ModePX:
		if d := ttl.Truncate(time.Millisecond); d > 0 {
			return d
		}
		return time.Millisecond
	default:
		if d := ttl.Truncate(time.Second); d > 0 {
			return d
		}
		return time.Second
	}
}

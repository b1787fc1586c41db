package cache

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	errs "github.com/jmgilman/go/errors"

	"github.com/goliatone/go-repository-service/entity"
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config controls how a service uses its cache backend.
type Config struct {
	// AppName namespaces every key. When empty keys carry no prefix at all,
	// UniqueKey included.
	AppName string
	// UniqueKey distinguishes entity types sharing one AppName. When empty
	// the service derives "|" + snake_case(type name).
	UniqueKey string
	// TTL applied to every entry, in whole seconds. Zero means no expiry.
	TTL time.Duration
	// Disabled turns the service into a pass-through to the store. It is
	// read once when the service is built.
	Disabled bool
	// NormalizeKeyOrder sorts condition fields by name before building keys,
	// so {a,b} and {b,a} share an entry. Off by default; turning it on
	// changes the keys of every multi-field condition.
	NormalizeKeyOrder bool
	// WriteTimeout bounds detached cache writes and deletes. Zero means the
	// detached task has no deadline of its own.
	WriteTimeout time.Duration
	// IDField is the condition field that carries entity identity.
	IDField string
	// Codec selects the entity encoding for direct entries: json, msgpack or cbor.
	Codec string
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return Config{
		TTL:          5 * time.Minute,
		WriteTimeout: 2 * time.Second,
		IDField:      entity.IDField,
		Codec:        CodecJSON,
	}
}

// WithDefaults fills zero valued fields that have no meaningful zero.
func (c Config) WithDefaults() Config {
	if c.IDField == "" {
		c.IDField = entity.IDField
	}
	if c.Codec == "" {
		c.Codec = CodecJSON
	}
	return c
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.TTL, validation.Min(time.Duration(0))),
		validation.Field(&c.WriteTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.IDField, validation.Required, validation.Match(fieldNamePattern)),
		validation.Field(&c.Codec, validation.In(CodecJSON, CodecMsgpack, CodecCBOR)),
	)
	if err != nil {
		return errs.Wrap(err, errs.CodeInvalidConfig, "invalid cache config")
	}
	return nil
}

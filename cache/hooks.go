package cache

// Hooks receives cache events from the service. Implementations must be
// cheap and non-blocking; they run on request paths and on detached writes.
type Hooks interface {
	// Hit is called when a lookup is served from the backend. viaRef is true
	// when the value was reached through a reference marker.
	Hit(key string, viaRef bool)

	// Miss is called when a lookup falls through to the store.
	Miss(key string)

	// RefRepaired is called when a reference pointed at a missing direct
	// entry and the entity was reloaded from the store.
	RefRepaired(refKey, id string)

	// Error is called for every cache failure the service swallowed.
	// op is one of "get", "set", "del", "encode", "decode", "fallback".
	Error(op, key string, err error)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) Hit(string, bool)            {}
func (NopHooks) Miss(string)                 {}
func (NopHooks) RefRepaired(string, string)  {}
func (NopHooks) Error(string, string, error) {}

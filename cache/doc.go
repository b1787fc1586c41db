// Package cache holds the caching contracts shared by the service and its
// backends.
//
// # Overview
//
// A Backend is a plain string key/value store with per key expiry. The
// service writes two kinds of values into it:
//
//   - direct entries: the encoded entity, stored under a key built from an
//     identity condition such as {id: "u1"}
//   - reference entries: the marker "#refId_" + id, stored under a key built
//     from any other condition such as {email: "a@x.com"}
//
// Reading a reference costs a second Get against the direct key. In exchange
// an update or delete only has to drop the direct entry; every reference to it
// resolves to a miss and repairs itself from the store.
//
// # Keys
//
// KeyBuilder renders a condition as prefix|field_value|field_value:
//
//	b := cache.NewKeyBuilder(cache.Prefix("App", "|user"), false)
//	b.Build(entity.Where("email", "a@x.com")) // App|user|email_a@x.com
//
// Field order matters. {a:1, b:2} and {b:2, a:1} produce different keys
// unless Config.NormalizeKeyOrder is set. Values are not escaped.
//
// # Backends
//
// NewSturdycBackend and NewRistrettoBackend build in-process stores,
// NewRedisBackend wraps a go-redis client. Any type implementing Backend can
// be used instead.
//
// # Logging and hooks
//
// Cache failures never reach the caller. They are logged through Logger at
// warn level and reported to Hooks. Adapters for zap, logrus and slog live
// under log/, a prometheus Hooks implementation under metrics/prometheus.
package cache

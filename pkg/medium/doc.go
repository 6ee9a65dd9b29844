// Package medium defines the durable key-value persistence contract used by
// persisted stores, plus the concrete media a process can choose from.
//
// Responsibilities:
//   - Medium only reads, writes and deletes one string value per key.
//   - Stores own serialization; a Medium never interprets values.
//   - Keys are stable per store ("auth-storage", "wedding-theme", ...). Two
//     stores must never share a key.
//
// Implementations:
//
//	Memory  in-process map, for tests and ephemeral sessions
//	SQLite  single table keyed by name (modernc.org/sqlite, no cgo)
//	Redis   plain string keys under an optional prefix (go-redis v9)
//
// Unavailability is reported as ErrUnavailable so callers can degrade to
// defaults without inspecting driver errors.
package medium

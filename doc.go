// Package store provides Store[S], a generic in-memory state container with
// synchronous change notification and best-effort durable snapshots.
//
// Responsibilities:
//   - Get returns a detached copy of the current state.
//   - Set, Update and Replace commit one atomic change and notify every
//     subscriber with the committed state before returning.
//   - When a medium is configured, every commit schedules a write of the
//     store's projection to its key. Writes happen on a single background
//     goroutine; only the newest pending snapshot is written, so the medium
//     converges on the last committed state.
//   - On construction the store rehydrates from its key. Corrupt payloads,
//     unknown versions and unavailable media fall back to the initial state.
//
// Data flow:
//
//	mutation -> commit (mutex) -> listeners (sync) -> writer (async) -> medium
//
// Persisted format:
//
//	{"state": <projection>, "version": <n>}
//
// The projection is decoded over the current state on rehydration, so fields
// left out of the projection keep their in-memory values.
//
// State types should hold their data in exported fields. Every copy the
// store makes goes through Clone, which drops unexported struct fields.
package store

// Package value provides the structured data carried by dispatched payloads.
//
// A payload is an Object: a map of string keys to sealed Value types. The
// value set is deliberately small so payloads have a single canonical
// encoding that can be hashed for the dispatch journal.
//
// Key design constraints:
//   - NO float types (use Int); floats break canonical hashing
//   - Null is an explicit type so every Value satisfies the sealed interface
//   - Object key order is RFC 8785 (UTF-16 code units) wherever it is observable
//
// This package imports nothing internal.
package value

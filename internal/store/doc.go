// Package store provides a SQLite-backed journal of dispatch activity.
//
// The journal is append-only and records:
//   - Runs: one per dispatcher session being journaled
//   - Cycles: one per dispatch cycle, with its action type, payload hash and outcome
//   - Steps: handler starts, completions, failures and waitFor edges
//
// Payload bodies are never stored. A cycle keeps only the domain-separated
// SHA-256 of the payload's canonical JSON (value.PayloadHash), which is enough
// to correlate identical dispatches without persisting their data.
//
// # Ordering
//
//   - All ordering uses the dispatcher's logical seq, never timestamps
//   - Queries order by (cycle) or (seq) so reads are deterministic
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// A Recorder adapts the store to dispatcher.Observer so a dispatcher can be
// journaled with dispatcher.WithObserver.
package store

// Package store provides a SQLite run recorder for simulation sessions.
//
// The engine itself defines no persistence. A host that wants a durable log
// attaches a Recorder to an engine; every state change, error and lifecycle
// notification becomes one row in events, keyed by (run_id, seq):
//   - runs: one row per session (pipeline, scenario, speed, status, trace hash)
//   - events: the append-only notification log of a run
//
// Ordering uses the per-run seq column, never timestamps, so a recorded run
// reads back in emission order. Payloads are stored as canonical JSON
// (internal/ir).
//
// QueryEvents filters a run's events with an internal/queryir predicate,
// compiled to SQL by internal/querysql.
//
// # Database Configuration
//
// Set through driver DSN parameters so every connection gets them:
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

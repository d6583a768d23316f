// Package store provides SQLite-backed storage for recorded synchronizer runs.
//
// A run is one execution of a scenario: its metadata lives in the runs
// table and every delegate callback it produced lives in the ops table,
// keyed by (run_id, seq). Keys are stored in their printed form, so the
// log can be read back without the values that produced it.
//
// # Ordering
//
// Ops are always returned ORDER BY seq ASC. Runs are listed by created_at
// and then id, which is time-sortable when ids come from UUIDv7Generator.
//
// # Migrations
//
// schema.sql creates the tables. Later changes are appended to the
// migrations list and tracked in PRAGMA user_version; Open applies the
// missing ones in order, one transaction each.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

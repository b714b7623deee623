// Package store provides the SQLite-backed sweep journal.
//
// Every completed sweep is written as one sweeps row plus one reaction_runs
// row per reaction that ran, inside a single transaction. The journal is
// append-only: rewriting a sweep id is a no-op.
//
// # Ordering
//
//   - Sweeps are read ORDER BY seq ASC, id ASC COLLATE BINARY
//   - Runs are read in visit order (position within the sweep)
//
// Ticks stored in last_run and this_run are the world's logical change
// ticks, so a journal can be compared across runs regardless of wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// PRAGMA user_version carries the journal layout version. Open refuses a
// journal stamped with a newer version.
package store

// Package store provides SQLite-backed history of computed fingerprints.
//
// Each row in runs records one fingerprint computation: the source path,
// the fingerprint, and every setting that influenced it. Dataset contents
// are never stored.
//
// # Ordering
//
// Runs are ordered by seq, an autoincrement column assigned on insert,
// never by recorded_at. Wall time is kept for display only.
//
// # Comparability
//
// Two fingerprints are only comparable when their format_key columns are
// equal. format_key is canonical.Config.Key at the time of the run and
// includes the canonical format version.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store

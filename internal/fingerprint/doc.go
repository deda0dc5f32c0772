// Package fingerprint folds a stream of Arrow record batches into a single
// 128-bit dataset fingerprint.
//
// Every value is canonicalized, each row's canonical forms are hashed, and the
// row hashes are summed modulo 2^128. The same sum combines rows into batches,
// batches into worker partials, and partials into the result, so neither row
// order, batch boundaries nor worker count can change the outcome.
//
// Two strategies are available:
//   - A sequential fold over batches in source order on the calling goroutine.
//   - A parallel pool: batches go from the single source cursor to a bounded
//     queue drained by a fixed set of workers, whose partials are combined
//     with CombineTree.
//
// Compute picks one from Options.Workers. Both return identical fingerprints
// for the same data.
//
// All errors are fatal: the first one stops the computation and no partial
// fingerprint is returned.
package fingerprint

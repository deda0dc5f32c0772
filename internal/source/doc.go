// Package source opens tabular files as Arrow record readers.
//
// CSV and TSV files have no schema, so one is inferred from a sample of the
// leading rows before the file is rewound and read in batches. Arrow IPC
// files and streams carry their own schema.
//
// Inference happens once per file. If a later row does not parse under the
// inferred type, the reader's Err reports it and the fingerprint fails; rows
// are never skipped or coerced.
package source

// Package record defines the shared type layer for the contact ledger:
// party identifiers and ordered party sets, opaque record handles, the
// three record bodies (contact proposal, finished contact, notification
// token), and canonical JSON serialization.
//
// # Record bodies
//
// A record body is what the ledger persists for one version of a record.
// Bodies are serialized with MarshalCanonical so that the same logical
// record always produces byte-identical storage and trace output:
//   - Object keys sorted by UTF-16 code units (RFC 8785)
//   - Strings NFC normalized
//   - No floats, no nulls (timestamps are unix seconds, durations whole
//     seconds)
//
// # Handles
//
// A Handle is an opaque reference to exactly one version of a record.
// Replacing a record invalidates the old handle; the ledger never has
// two live handles for the same logical record. Production handles are
// UUIDv7 (time-sortable); tests use a fixed sequence generator for
// deterministic golden traces.
package record

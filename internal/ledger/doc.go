// Package ledger provides SQLite-backed durable storage for versioned,
// authorization-tagged records.
//
// The ledger implements an append-only arena of record versions:
//   - Every create or replace produces a fresh, unique, opaque handle
//   - Replacing a record tombstones the old version via compare-and-swap
//     on the consumed flag; a lost race surfaces as StaleHandle
//   - Every record carries an access-control triple
//     {authorizers, viewers, actors} checked by the store itself,
//     not embedded in the record's business fields
//
// # Critical Patterns
//
// Logical identity and time:
//   - All ordering uses seq INTEGER (logical clock), NEVER timestamps
//   - The clock resumes from MAX(seq) on open
//
// Deterministic query results:
//   - All listing queries include: ORDER BY seq ASC, handle ASC COLLATE BINARY
//
// Atomicity:
//   - Consume-and-append runs in a single SQLite transaction; no
//     partial update is ever observable
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// Record bodies and party lists are serialized with
// record.MarshalCanonical (RFC 8785 canonical JSON).
package ledger

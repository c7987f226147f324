// Package agreement implements the proposal / unanimous-approval state
// machine over the versioned record ledger.
//
// A proposer submits a draft encounter naming a set of parties. The
// draft becomes a pending proposal that every named party can see and
// act on; each approval replaces the proposal version with a new one
// carrying the grown approval set, invalidating the old handle. When
// the approval set equals the party set the proposal is consumed and
// the finished contact record is created in the same transaction -
// there is never a partially-committed contact.
//
// Approvals on the same proposal version are strictly serialized by the
// ledger's compare-and-swap: a losing approval fails immediately with
// STALE_HANDLE and the caller refetches and retries. No transition
// blocks waiting for another party, which also means a single
// unresponsive party can stall a proposal indefinitely - retry and
// liveness are the caller's responsibility.
package agreement

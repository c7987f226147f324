package ledger

import (
	"github.com/Quantumplation/daml-trace/internal/record"
)

// Record is one persisted version of a ledger record.
//
// The access-control triple is checked by the store on every operation:
//   - Authorizers: parties whose consent the record embodies; may
//     append and consume it
//   - Viewers: parties granted read access without authorization power
//   - Actors: parties permitted to initiate transitions that consume
//     this version (e.g. every listed party may act on a proposal even
//     before approving it)
type Record struct {
	Handle      record.Handle
	Kind        string
	Body        map[string]any
	Authorizers record.Set
	Viewers     record.Set
	Actors      record.Set
	Seq         int64
	Consumed    bool
}

// readableBy reports whether p may fetch this record.
func (r Record) readableBy(p record.Party) bool {
	return r.Authorizers.Contains(p) || r.Viewers.Contains(p)
}

// consumableBy reports whether p may consume this version.
func (r Record) consumableBy(p record.Party) bool {
	return r.Actors.Contains(p) || r.Authorizers.Contains(p)
}

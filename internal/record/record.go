package record

import (
	"fmt"
	"time"
)

// Party identifies a single participant. Party identity is provisioned
// externally; the ledger treats it as an opaque, non-forgeable string.
type Party string

// Set is an ordered-insertion set of parties: no duplicates, iteration
// in the order parties were added. Ordering matters for deterministic
// serialization and broadcast fan-out.
type Set struct {
	members []Party
	index   map[Party]struct{}
}

// NewSet builds a Set from parties in order.
// Returns an error on the first duplicate.
func NewSet(parties ...Party) (Set, error) {
	s := Set{index: make(map[Party]struct{}, len(parties))}
	for _, p := range parties {
		if p == "" {
			return Set{}, fmt.Errorf("empty party identifier")
		}
		if _, dup := s.index[p]; dup {
			return Set{}, fmt.Errorf("duplicate party %q", p)
		}
		s.index[p] = struct{}{}
		s.members = append(s.members, p)
	}
	return s, nil
}

// MustSet is like NewSet but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSet(parties ...Party) Set {
	s, err := NewSet(parties...)
	if err != nil {
		panic(err)
	}
	return s
}

// Contains reports whether p is a member.
func (s Set) Contains(p Party) bool {
	_, ok := s.index[p]
	return ok
}

// Members returns the parties in insertion order.
// The returned slice is a copy; mutating it does not affect the set.
func (s Set) Members() []Party {
	out := make([]Party, len(s.members))
	copy(out, s.members)
	return out
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s.members)
}

// With returns a new Set with p appended.
// Returns an error if p is already a member.
func (s Set) With(p Party) (Set, error) {
	return NewSet(append(s.Members(), p)...)
}

// Equal compares two sets as sets - order irrelevant.
func (s Set) Equal(other Set) bool {
	if len(s.members) != len(other.members) {
		return false
	}
	for p := range s.index {
		if !other.Contains(p) {
			return false
		}
	}
	return true
}

// Strings returns the members as plain strings, insertion order.
func (s Set) Strings() []string {
	out := make([]string, len(s.members))
	for i, p := range s.members {
		out[i] = string(p)
	}
	return out
}

// Record kinds stored in the ledger.
const (
	KindProposal = "proposal"
	KindContact  = "contact"
)

// ContactDraft is a candidate encounter record: not yet authorized by
// anyone beyond the proposer.
type ContactDraft struct {
	Timestamp time.Time
	Duration  time.Duration
	Parties   Set
}

// Proposal is a pending agreement: a draft plus the parties that have
// approved it so far. Invariant: ApprovedBy is a subset of
// Draft.Parties at all times.
type Proposal struct {
	Draft      ContactDraft
	ApprovedBy Set
}

// Contact is a finished encounter record, co-authorized by every listed
// party. It exists only in finished form and is never mutated.
type Contact struct {
	Timestamp time.Time
	Duration  time.Duration
	Parties   Set
}

// Body converts a draft to its canonical storage form.
// Timestamps become unix seconds and durations whole seconds: canonical
// JSON forbids floats.
func (d ContactDraft) Body() map[string]any {
	return map[string]any{
		"timestamp":  d.Timestamp.Unix(),
		"duration_s": int64(d.Duration / time.Second),
		"parties":    stringsToAny(d.Parties.Strings()),
	}
}

// Body converts a proposal to its canonical storage form.
func (p Proposal) Body() map[string]any {
	body := p.Draft.Body()
	body["approved_by"] = stringsToAny(p.ApprovedBy.Strings())
	return body
}

// Body converts a finished contact to its canonical storage form.
func (c Contact) Body() map[string]any {
	return ContactDraft{Timestamp: c.Timestamp, Duration: c.Duration, Parties: c.Parties}.Body()
}

// DecodeProposal parses a proposal from its stored body.
func DecodeProposal(body map[string]any) (Proposal, error) {
	draft, err := decodeDraft(body)
	if err != nil {
		return Proposal{}, fmt.Errorf("decode proposal: %w", err)
	}
	approved, err := decodeParties(body, "approved_by")
	if err != nil {
		return Proposal{}, fmt.Errorf("decode proposal: %w", err)
	}
	for _, p := range approved.Members() {
		if !draft.Parties.Contains(p) {
			return Proposal{}, fmt.Errorf("decode proposal: approver %q is not a listed party", p)
		}
	}
	return Proposal{Draft: draft, ApprovedBy: approved}, nil
}

// DecodeContact parses a finished contact from its stored body.
func DecodeContact(body map[string]any) (Contact, error) {
	draft, err := decodeDraft(body)
	if err != nil {
		return Contact{}, fmt.Errorf("decode contact: %w", err)
	}
	return Contact{Timestamp: draft.Timestamp, Duration: draft.Duration, Parties: draft.Parties}, nil
}

func decodeDraft(body map[string]any) (ContactDraft, error) {
	ts, err := decodeInt(body, "timestamp")
	if err != nil {
		return ContactDraft{}, err
	}
	dur, err := decodeInt(body, "duration_s")
	if err != nil {
		return ContactDraft{}, err
	}
	parties, err := decodeParties(body, "parties")
	if err != nil {
		return ContactDraft{}, err
	}
	if parties.Len() == 0 {
		return ContactDraft{}, fmt.Errorf("field %q: empty party set", "parties")
	}
	return ContactDraft{
		Timestamp: time.Unix(ts, 0).UTC(),
		Duration:  time.Duration(dur) * time.Second,
		Parties:   parties,
	}, nil
}

func decodeInt(body map[string]any, key string) (int64, error) {
	raw, ok := body[key]
	if !ok {
		return 0, fmt.Errorf("field %q: missing", key)
	}
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("field %q: expected integer, got %T", key, raw)
	}
}

func decodeParties(body map[string]any, key string) (Set, error) {
	raw, ok := body[key]
	if !ok {
		return Set{}, fmt.Errorf("field %q: missing", key)
	}
	list, ok := raw.([]any)
	if !ok {
		return Set{}, fmt.Errorf("field %q: expected array, got %T", key, raw)
	}
	parties := make([]Party, len(list))
	for i, elem := range list {
		s, ok := elem.(string)
		if !ok {
			return Set{}, fmt.Errorf("field %q[%d]: expected string, got %T", key, i, elem)
		}
		parties[i] = Party(s)
	}
	set, err := NewSet(parties...)
	if err != nil {
		return Set{}, fmt.Errorf("field %q: %w", key, err)
	}
	return set, nil
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

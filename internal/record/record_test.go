package record

import (
	"testing"
	"time"
)

func TestNewSet_RejectsEmptyAndDuplicate(t *testing.T) {
	if _, err := NewSet("alice", ""); err == nil {
		t.Fatal("NewSet() accepted an empty identifier")
	}
	if _, err := NewSet("alice", "bob", "alice"); err == nil {
		t.Fatal("NewSet() accepted a duplicate party")
	}
}

func TestSet_PreservesInsertionOrder(t *testing.T) {
	s := MustSet("charlie", "alice", "bob")
	got := s.Strings()
	want := []string{"charlie", "alice", "bob"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Members()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSet_EqualIgnoresOrder(t *testing.T) {
	a := MustSet("alice", "bob", "charlie")
	b := MustSet("charlie", "bob", "alice")
	if !a.Equal(b) {
		t.Error("Equal() = false for same members in different order")
	}

	c := MustSet("alice", "bob")
	if a.Equal(c) {
		t.Error("Equal() = true for different member sets")
	}
}

func TestSet_With(t *testing.T) {
	s := MustSet("alice")
	s2, err := s.With("bob")
	if err != nil {
		t.Fatalf("With() failed: %v", err)
	}
	if !s2.Contains("bob") {
		t.Error("With() did not add the new member")
	}
	if s.Contains("bob") {
		t.Error("With() mutated the receiver")
	}

	if _, err := s2.With("alice"); err == nil {
		t.Error("With() accepted a duplicate member")
	}
}

func TestProposal_BodyRoundTrip(t *testing.T) {
	p := Proposal{
		Draft: ContactDraft{
			Timestamp: time.Unix(1600000000, 0).UTC(),
			Duration:  5 * time.Minute,
			Parties:   MustSet("alice", "bob", "charlie"),
		},
		ApprovedBy: MustSet("alice"),
	}

	got, err := DecodeProposal(p.Body())
	if err != nil {
		t.Fatalf("DecodeProposal() failed: %v", err)
	}

	if !got.Draft.Timestamp.Equal(p.Draft.Timestamp) {
		t.Errorf("timestamp = %v, want %v", got.Draft.Timestamp, p.Draft.Timestamp)
	}
	if got.Draft.Duration != p.Draft.Duration {
		t.Errorf("duration = %v, want %v", got.Draft.Duration, p.Draft.Duration)
	}
	if !got.Draft.Parties.Equal(p.Draft.Parties) {
		t.Errorf("parties = %v, want %v", got.Draft.Parties.Strings(), p.Draft.Parties.Strings())
	}
	if !got.ApprovedBy.Equal(p.ApprovedBy) {
		t.Errorf("approved_by = %v, want %v", got.ApprovedBy.Strings(), p.ApprovedBy.Strings())
	}
}

func TestContact_BodyRoundTrip(t *testing.T) {
	c := Contact{
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Duration:  90 * time.Second,
		Parties:   MustSet("alice", "bob"),
	}

	got, err := DecodeContact(c.Body())
	if err != nil {
		t.Fatalf("DecodeContact() failed: %v", err)
	}
	if !got.Timestamp.Equal(c.Timestamp) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, c.Timestamp)
	}
	if got.Duration != c.Duration {
		t.Errorf("duration = %v, want %v", got.Duration, c.Duration)
	}
}

func TestDecodeProposal_RejectsApproverOutsideParties(t *testing.T) {
	body := map[string]any{
		"timestamp":   int64(1600000000),
		"duration_s":  int64(300),
		"parties":     []any{"alice", "bob"},
		"approved_by": []any{"mallory"},
	}
	if _, err := DecodeProposal(body); err == nil {
		t.Fatal("DecodeProposal() accepted an approver outside the party list")
	}
}

func TestDecodeContact_RejectsEmptyParties(t *testing.T) {
	body := map[string]any{
		"timestamp":  int64(1600000000),
		"duration_s": int64(300),
		"parties":    []any{},
	}
	if _, err := DecodeContact(body); err == nil {
		t.Fatal("DecodeContact() accepted an empty party list")
	}
}

func TestUUIDv7Generator_UniqueHandles(t *testing.T) {
	gen := UUIDv7Generator{}
	seen := make(map[Handle]bool)
	for i := 0; i < 100; i++ {
		h := gen.Generate()
		if seen[h] {
			t.Fatalf("Generate() repeated handle %s", h)
		}
		seen[h] = true
	}
}

func TestFixedHandleGenerator_PanicsWhenExhausted(t *testing.T) {
	gen := NewFixedHandleGenerator("a", "b")
	if h := gen.Generate(); h != "a" {
		t.Errorf("Generate() = %s, want a", h)
	}
	if h := gen.Generate(); h != "b" {
		t.Errorf("Generate() = %s, want b", h)
	}

	defer func() {
		if recover() == nil {
			t.Error("Generate() did not panic when exhausted")
		}
	}()
	gen.Generate()
}

func TestSequenceHandleGenerator_Format(t *testing.T) {
	gen := NewSequenceHandleGenerator()
	if h := gen.Generate(); h != "h-001" {
		t.Errorf("Generate() = %s, want h-001", h)
	}
	if h := gen.Generate(); h != "h-002" {
		t.Errorf("Generate() = %s, want h-002", h)
	}
}

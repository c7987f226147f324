package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/Quantumplation/daml-trace/internal/record"
)

var (
	testTimestamp = time.Unix(1600000000, 0).UTC()
	testDuration  = 5 * time.Minute
)

func TestAppend_AssignsHandleAndSeq(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	h, err := s.Append(ctx, "alice", proposalRecord("alice", "bob"))
	if err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if h != "h-001" {
		t.Errorf("handle = %s, want h-001", h)
	}

	rec, err := s.Resolve(ctx, h)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if rec.Seq != 1 {
		t.Errorf("seq = %d, want 1", rec.Seq)
	}
	if rec.Consumed {
		t.Error("freshly appended record is consumed")
	}
}

func TestAppend_IgnoresCallerSuppliedHandleAndSeq(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := proposalRecord("alice", "bob")
	rec.Handle = "spoofed"
	rec.Seq = 999

	h, err := s.Append(ctx, "alice", rec)
	if err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if h != "h-001" {
		t.Errorf("handle = %s, want store-assigned h-001", h)
	}
	if _, err := s.Resolve(ctx, "spoofed"); !IsStale(err) {
		t.Errorf("Resolve(spoofed) error = %v, want STALE_HANDLE", err)
	}
}

func TestAppend_RejectsNonAuthorizer(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Append(context.Background(), "mallory", proposalRecord("alice", "bob"))
	if !IsAuthorization(err) {
		t.Fatalf("Append() error = %v, want AUTHORIZATION", err)
	}
}

func TestConsume_TombstonesHandle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	h, err := s.Append(ctx, "alice", proposalRecord("alice", "bob"))
	if err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	if err := s.Consume(ctx, h, "alice"); err != nil {
		t.Fatalf("Consume() failed: %v", err)
	}

	rec, err := s.Resolve(ctx, h)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if !rec.Consumed {
		t.Error("record not marked consumed")
	}

	// Second consume observes the tombstone.
	if err := s.Consume(ctx, h, "alice"); !IsStale(err) {
		t.Errorf("second Consume() error = %v, want STALE_HANDLE", err)
	}
}

func TestConsume_UnknownHandleIsStale(t *testing.T) {
	s := openTestStore(t)

	err := s.Consume(context.Background(), "no-such-handle", "alice")
	if !IsStale(err) {
		t.Fatalf("Consume() error = %v, want STALE_HANDLE", err)
	}
}

func TestConsume_ActorMayConsumeWithoutAuthorization(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Bob is an actor but not an authorizer of Alice's proposal.
	h, err := s.Append(ctx, "alice", proposalRecord("alice", "bob"))
	if err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if err := s.Consume(ctx, h, "bob"); err != nil {
		t.Fatalf("Consume() by actor failed: %v", err)
	}
}

func TestConsume_RejectsOutsider(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	h, err := s.Append(ctx, "alice", proposalRecord("alice", "bob"))
	if err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if err := s.Consume(ctx, h, "mallory"); !IsAuthorization(err) {
		t.Errorf("Consume() by outsider error = %v, want AUTHORIZATION", err)
	}

	// The failed consume left the record live.
	rec, err := s.Resolve(ctx, h)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if rec.Consumed {
		t.Error("record consumed by unauthorized caller")
	}
}

func TestReplace_ConsumesAndAppendsAtomically(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	h1, err := s.Append(ctx, "alice", proposalRecord("alice", "bob"))
	if err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	next := proposalRecord("alice", "bob")
	next.Authorizers = record.MustSet("alice", "bob")
	h2, err := s.Replace(ctx, "bob", h1, next)
	if err != nil {
		t.Fatalf("Replace() failed: %v", err)
	}
	if h2 == h1 {
		t.Error("Replace() reused the consumed handle")
	}

	old, err := s.Resolve(ctx, h1)
	if err != nil {
		t.Fatalf("Resolve(old) failed: %v", err)
	}
	if !old.Consumed {
		t.Error("old version not consumed")
	}

	cur, err := s.Resolve(ctx, h2)
	if err != nil {
		t.Fatalf("Resolve(new) failed: %v", err)
	}
	if cur.Consumed {
		t.Error("new version is consumed")
	}
	if cur.Seq <= old.Seq {
		t.Errorf("new seq %d not after old seq %d", cur.Seq, old.Seq)
	}
}

func TestReplace_LoserGetsStaleHandleAndNoPartialUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	h1, err := s.Append(ctx, "alice", proposalRecord("alice", "bob", "charlie"))
	if err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	winner := proposalRecord("alice", "bob", "charlie")
	winner.Authorizers = record.MustSet("alice", "bob")
	if _, err := s.Replace(ctx, "bob", h1, winner); err != nil {
		t.Fatalf("first Replace() failed: %v", err)
	}

	before, err := s.AllRecords(ctx)
	if err != nil {
		t.Fatalf("AllRecords() failed: %v", err)
	}

	loser := proposalRecord("alice", "bob", "charlie")
	loser.Authorizers = record.MustSet("alice", "charlie")
	if _, err := s.Replace(ctx, "charlie", h1, loser); !IsStale(err) {
		t.Fatalf("second Replace() error = %v, want STALE_HANDLE", err)
	}

	after, err := s.AllRecords(ctx)
	if err != nil {
		t.Fatalf("AllRecords() failed: %v", err)
	}
	if len(after) != len(before) {
		t.Errorf("losing Replace() left a partial write: %d records, want %d", len(after), len(before))
	}
}

func TestReplace_RejectsCallerOutsideNewAuthorizers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	h1, err := s.Append(ctx, "alice", proposalRecord("alice", "bob"))
	if err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	next := proposalRecord("alice", "bob")
	// Bob submits a successor he is not an authorizer of.
	next.Authorizers = record.MustSet("alice")
	if _, err := s.Replace(ctx, "bob", h1, next); !IsAuthorization(err) {
		t.Fatalf("Replace() error = %v, want AUTHORIZATION", err)
	}

	// Precondition failure must not consume the old version.
	rec, err := s.Resolve(ctx, h1)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if rec.Consumed {
		t.Error("old version consumed by rejected Replace()")
	}
}

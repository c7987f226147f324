package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Quantumplation/daml-trace/internal/record"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", WithHandleGenerator(record.NewSequenceHandleGenerator()))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func proposalRecord(parties ...record.Party) Record {
	all := record.MustSet(parties...)
	p := record.Proposal{
		Draft: record.ContactDraft{
			Timestamp: testTimestamp,
			Duration:  testDuration,
			Parties:   all,
		},
		ApprovedBy: record.MustSet(parties[0]),
	}
	return Record{
		Kind:        record.KindProposal,
		Body:        p.Body(),
		Authorizers: record.MustSet(parties[0]),
		Viewers:     all,
		Actors:      all,
	}
}

func TestOpen_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	var count int
	err = s.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name IN ('records', 'tokens')
	`).Scan(&count)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 2 {
		t.Errorf("table count = %d, want 2", count)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	s2.Close()
}

func TestOpen_SchemaVersion(t *testing.T) {
	s := openTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestOpen_ForeignKeysEnabled(t *testing.T) {
	s := openTestStore(t)

	var fk int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if fk != 1 {
		t.Error("foreign_keys pragma not enabled")
	}
}

func TestOpen_ResumesClockAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path, WithHandleGenerator(record.NewSequenceHandleGenerator()))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	h1, err := s1.Append(ctx, "alice", proposalRecord("alice", "bob"))
	if err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	rec1, err := s1.Resolve(ctx, h1)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	s1.Close()

	// A fresh handle generator restarts at h-001, which must not
	// collide because the first store already used it. Use a suffix
	// to keep handles distinct while proving seq continuity.
	s2, err := Open(path, WithHandleGenerator(record.NewFixedHandleGenerator("reopened-1")))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	h2, err := s2.Append(ctx, "alice", proposalRecord("alice", "bob"))
	if err != nil {
		t.Fatalf("Append() after reopen failed: %v", err)
	}
	rec2, err := s2.Resolve(ctx, h2)
	if err != nil {
		t.Fatalf("Resolve() after reopen failed: %v", err)
	}

	if rec2.Seq <= rec1.Seq {
		t.Errorf("seq after reopen = %d, want > %d", rec2.Seq, rec1.Seq)
	}
}

func TestClock_Monotonic(t *testing.T) {
	c := NewClock()
	prev := c.Next()
	for i := 0; i < 100; i++ {
		next := c.Next()
		if next <= prev {
			t.Fatalf("Next() = %d after %d, not monotonic", next, prev)
		}
		prev = next
	}
}

package testutil

import (
	"testing"

	"github.com/Quantumplation/daml-trace/internal/ledger"
	"github.com/Quantumplation/daml-trace/internal/record"
)

// OpenLedger opens a fresh in-memory ledger with a sequence handle
// generator and registers cleanup on the test.
//
// Sequence handles (h-001, h-002, ...) make handle values deterministic
// across runs, which tests rely on for exact assertions.
func OpenLedger(t *testing.T) *ledger.Store {
	t.Helper()

	st, err := ledger.Open(":memory:",
		ledger.WithHandleGenerator(record.NewSequenceHandleGenerator()))
	if err != nil {
		t.Fatalf("failed to open in-memory ledger: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("failed to close ledger: %v", err)
		}
	})
	return st
}

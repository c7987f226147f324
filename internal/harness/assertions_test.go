package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Type: "invocation", Action: "propose", Caller: "alice", Seq: 1},
		{Type: "completion", Action: "propose", Case: "Proposed", Seq: 2},
		{Type: "invocation", Action: "approve", Caller: "bob", Seq: 3},
		{Type: "completion", Action: "approve", Case: "Pending", Seq: 4},
		{Type: "invocation", Action: "approve", Caller: "charlie", Seq: 5},
		{Type: "completion", Action: "approve", Case: "Finished", Seq: 6},
		{Type: "invocation", Action: "broadcast", Caller: "alice", Seq: 7},
		{Type: "completion", Action: "broadcast", Case: "Broadcast", Seq: 8},
	}
}

func TestAssertTraceContains_MatchesActionCallerAndCase(t *testing.T) {
	trace := sampleTrace()

	require.NoError(t, assertTraceContains(trace, Assertion{
		Action: "approve",
	}))
	require.NoError(t, assertTraceContains(trace, Assertion{
		Action: "approve", As: "charlie",
	}))
	require.NoError(t, assertTraceContains(trace, Assertion{
		Action: "approve", As: "charlie", Case: "Finished",
	}))
}

func TestAssertTraceContains_ReportsMissing(t *testing.T) {
	trace := sampleTrace()

	err := assertTraceContains(trace, Assertion{Action: "lookup"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "action lookup")
	require.Contains(t, err.Error(), "not found in trace")

	// Right action, wrong completion case.
	err = assertTraceContains(trace, Assertion{
		Action: "approve", As: "bob", Case: "Finished",
	})
	require.Error(t, err)
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	require.NoError(t, assertTraceOrder(trace, Assertion{
		Actions: []string{"propose", "approve", "broadcast"},
	}))

	err := assertTraceOrder(trace, Assertion{
		Actions: []string{"broadcast", "propose"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "should be before")

	err = assertTraceOrder(trace, Assertion{
		Actions: []string{"propose", "lookup"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing action: lookup")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	require.NoError(t, assertTraceCount(trace, Assertion{
		Action: "approve", Count: 2,
	}))
	require.NoError(t, assertTraceCount(trace, Assertion{
		Action: "lookup", Count: 0,
	}))

	err := assertTraceCount(trace, Assertion{Action: "approve", Count: 3})
	require.Error(t, err)
	require.Contains(t, err.Error(), "3 occurrences of approve")
	require.Contains(t, err.Error(), "2 occurrences")
}

func TestEvaluateAssertions_CollectsAllFailures(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()

	failures := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Action: "approve", Count: 2},
		{Type: AssertTraceCount, Action: "approve", Count: 5},
		{Type: AssertTraceContains, Action: "lookup"},
	}, nil)

	require.Len(t, failures, 2)
}

func TestEvaluateAssertions_TokenRequiresContext(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()

	failures := EvaluateAssertions(result, []Assertion{
		{Type: AssertToken, Owner: "alice", Exists: true},
	}, nil)

	require.Len(t, failures, 1)
	require.Contains(t, failures[0], "token requires notify store context")
}

package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name))
	require.NoError(t, err)
	return scenario
}

func TestRunScenario_FiveMinuteContact(t *testing.T) {
	scenario := loadTestScenario(t, "five_minute_contact.yaml")

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.True(t, result.Pass)
}

func TestRunScenario_IdempotentBroadcast(t *testing.T) {
	scenario := loadTestScenario(t, "idempotent_broadcast.yaml")

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.True(t, result.Pass)
}

func TestRunScenario_Rejections(t *testing.T) {
	scenario := loadTestScenario(t, "rejections.yaml")

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.True(t, result.Pass)
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "expect_mismatch",
		Description: "an approve that cannot finish is expected to",
		Roster:      []string{"alice", "bob", "charlie"},
		Flow: []FlowStep{
			{
				Action:    ActionPropose,
				As:        "alice",
				Parties:   []string{"alice", "bob", "charlie"},
				Timestamp: 1600000000,
				DurationS: 60,
				Save:      "p",
			},
			{
				Action: ActionApprove,
				As:     "bob",
				Ref:    "p",
				// Bob's approval leaves Charlie outstanding, so the
				// run stays Pending and this expectation fails.
				Expect: &ExpectClause{Case: "Finished"},
			},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Action: ActionApprove, Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0], "expected case Finished, got Pending")
}

func TestRun_RejectionWithoutExpectFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "silent_rejection",
		Description: "an unexpected rejection fails the scenario",
		Roster:      []string{"alice", "bob", "mallory"},
		Flow: []FlowStep{
			{
				Action:    ActionPropose,
				As:        "alice",
				Parties:   []string{"alice", "bob"},
				Timestamp: 1600000000,
				DurationS: 60,
				Save:      "p",
			},
			{
				Action: ActionApprove,
				As:     "mallory",
				Ref:    "p",
				// No expect clause: the step must succeed, but Mallory
				// is not a party.
			},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Action: ActionApprove, Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0], "expected success, got NOT_A_PARTY")
}

func TestRun_UnboundRefAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "unbound_ref",
		Description: "a ref that no step saved aborts the run",
		Roster:      []string{"alice"},
		Flow: []FlowStep{
			{Action: ActionApprove, As: "alice", Ref: "nowhere"},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Action: ActionApprove, Count: 1},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	require.Contains(t, err.Error(), `ref "nowhere" is not bound`)
}

func TestRun_ReusedSaveFollowsProposalVersions(t *testing.T) {
	scenario := &Scenario{
		Name:        "reused_save",
		Description: "re-saving under the same name tracks the live version",
		Roster:      []string{"alice", "bob", "charlie"},
		Flow: []FlowStep{
			{
				Action:    ActionPropose,
				As:        "alice",
				Parties:   []string{"alice", "bob", "charlie"},
				Timestamp: 1600000000,
				DurationS: 120,
				Save:      "p",
			},
			{Action: ActionApprove, As: "bob", Ref: "p", Save: "p",
				Expect: &ExpectClause{Case: "Pending"}},
			{Action: ActionApprove, As: "charlie", Ref: "p", Save: "p",
				Expect: &ExpectClause{Case: "Finished"}},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Action: ActionApprove, Count: 2},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.True(t, result.Pass)
}

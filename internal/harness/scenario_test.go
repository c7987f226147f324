package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenarioFile(t, `
name: minimal
description: one proposal
roster: [alice, bob]
flow:
  - action: propose
    as: alice
    parties: [alice, bob]
    timestamp: 1600000000
    duration_s: 60
    save: p
assertions:
  - type: trace_count
    action: propose
    count: 1
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	require.Equal(t, "minimal", scenario.Name)
	require.Len(t, scenario.Flow, 1)
	require.Equal(t, "p", scenario.Flow[0].Save)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownFieldRejected(t *testing.T) {
	// "assertion" is a typo for "assertions" and must be rejected.
	path := writeScenarioFile(t, `
name: typo
description: typo in assertions key
roster: [alice]
flow:
  - action: lookup
    as: alice
    owner: alice
assertion:
  - type: trace_count
    action: lookup
    count: 1
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_MissingRoster(t *testing.T) {
	path := writeScenarioFile(t, `
name: no_roster
description: roster omitted
flow:
  - action: lookup
    as: alice
    owner: alice
assertions:
  - type: trace_count
    action: lookup
    count: 1
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "roster list is required")
}

func TestLoadScenario_CallerNotInRoster(t *testing.T) {
	path := writeScenarioFile(t, `
name: stranger
description: caller missing from roster
roster: [alice]
flow:
  - action: lookup
    as: bob
    owner: alice
assertions:
  - type: trace_count
    action: lookup
    count: 1
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), `caller "bob" is not in the roster`)
}

func TestLoadScenario_UnknownAction(t *testing.T) {
	path := writeScenarioFile(t, `
name: bad_action
description: unsupported action name
roster: [alice]
flow:
  - action: revoke
    as: alice
assertions:
  - type: trace_count
    action: revoke
    count: 1
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown action "revoke"`)
}

func TestLoadScenario_ProposeRequiresFields(t *testing.T) {
	path := writeScenarioFile(t, `
name: bare_propose
description: propose without timestamp
roster: [alice, bob]
flow:
  - action: propose
    as: alice
    parties: [alice, bob]
    duration_s: 60
assertions:
  - type: trace_count
    action: propose
    count: 1
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "timestamp is required")
}

func TestLoadScenario_ApproveRequiresRef(t *testing.T) {
	path := writeScenarioFile(t, `
name: bare_approve
description: approve without ref
roster: [alice]
flow:
  - action: approve
    as: alice
assertions:
  - type: trace_count
    action: approve
    count: 1
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ref is required")
}

func TestLoadScenario_DuplicateRosterEntry(t *testing.T) {
	path := writeScenarioFile(t, `
name: dup_roster
description: duplicate party in roster
roster: [alice, alice]
flow:
  - action: lookup
    as: alice
    owner: alice
assertions:
  - type: trace_count
    action: lookup
    count: 1
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), `duplicate party id "alice"`)
}

func TestLoadScenario_UnknownAssertionType(t *testing.T) {
	path := writeScenarioFile(t, `
name: bad_assert
description: unsupported assertion type
roster: [alice]
flow:
  - action: lookup
    as: alice
    owner: alice
assertions:
  - type: final_state
    action: lookup
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), `unknown assertion type "final_state"`)
}

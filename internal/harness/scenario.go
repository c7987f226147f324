package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios drive the agreement workflow end to end and assert on the
// resulting trace and token state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Roster lists the party ids provisioned for the scenario.
	// Every caller, party, and owner referenced in the flow must
	// appear here.
	Roster []string `yaml:"roster"`

	// Flow contains the main test flow. Each step invokes one
	// operation and optionally validates the outcome case.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and token state.
	// Supported types: trace_contains, trace_order, trace_count, token
	Assertions []Assertion `yaml:"assertions"`
}

// FlowStep represents one operation in the flow.
type FlowStep struct {
	// Action is the operation name: propose, approve, broadcast, or lookup.
	Action string `yaml:"action"`

	// As is the party id invoking the operation.
	As string `yaml:"as"`

	// Parties lists the contact parties (propose only).
	Parties []string `yaml:"parties,omitempty"`

	// Timestamp is the contact time in unix seconds (propose only).
	Timestamp int64 `yaml:"timestamp,omitempty"`

	// DurationS is the contact duration in whole seconds (propose only).
	DurationS int64 `yaml:"duration_s,omitempty"`

	// Ref names a handle bound by an earlier step's save field
	// (approve and broadcast).
	Ref string `yaml:"ref,omitempty"`

	// Owner is the party whose token is queried (lookup only).
	Owner string `yaml:"owner,omitempty"`

	// Save binds the handle produced by this step to a name that
	// later steps can reference via ref. Approve produces a fresh
	// handle each time, so re-saving under the same name follows
	// the proposal through its versions.
	Save string `yaml:"save,omitempty"`

	// Expect specifies the expected outcome case.
	// If nil, the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Case is the expected outcome case. For successful steps this is
	// Proposed, Pending, Finished, Broadcast, Found, or NotFound.
	// For rejected steps it is the error code, e.g. NOT_A_PARTY,
	// STALE_HANDLE, NOT_VISIBLE, AUTHORIZATION, DUPLICATE_APPROVAL,
	// or INVALID_PROPOSAL.
	Case string `yaml:"case"`
}

// Assertion validates the trace or final token state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": check an operation appears in the trace
	// - "trace_order": check operations appear in order
	// - "trace_count": check an operation appears exactly N times
	// - "token": check whether a party holds a notification token
	Type string `yaml:"type"`

	// Action is the operation name (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// As restricts the match to invocations by this caller
	// (trace_contains only; empty matches any caller).
	As string `yaml:"as,omitempty"`

	// Case restricts the match to invocations that completed with
	// this outcome case (trace_contains only; empty matches any).
	Case string `yaml:"case,omitempty"`

	// Actions is the expected operation order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Owner is the token owner to query (token).
	Owner string `yaml:"owner,omitempty"`

	// Exists is whether the owner should hold a token (token).
	Exists bool `yaml:"exists"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertToken         = "token"
)

// Operation names used in flow steps and trace events.
const (
	ActionPropose   = "propose"
	ActionApprove   = "approve"
	ActionBroadcast = "broadcast"
	ActionLookup    = "lookup"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Roster) == 0 {
		return fmt.Errorf("roster list is required and must be non-empty")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	provisioned := make(map[string]bool, len(s.Roster))
	for i, id := range s.Roster {
		if id == "" {
			return fmt.Errorf("roster[%d]: party id must be non-empty", i)
		}
		if provisioned[id] {
			return fmt.Errorf("roster[%d]: duplicate party id %q", i, id)
		}
		provisioned[id] = true
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step, provisioned); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, provisioned); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single flow step based on its action.
func validateStep(index int, step *FlowStep, provisioned map[string]bool) error {
	if step.As == "" {
		return fmt.Errorf("flow[%d]: as is required", index)
	}
	if !provisioned[step.As] {
		return fmt.Errorf("flow[%d]: caller %q is not in the roster", index, step.As)
	}

	switch step.Action {
	case ActionPropose:
		if len(step.Parties) == 0 {
			return fmt.Errorf("flow[%d]: parties is required for propose", index)
		}
		for _, p := range step.Parties {
			if !provisioned[p] {
				return fmt.Errorf("flow[%d]: party %q is not in the roster", index, p)
			}
		}
		if step.Timestamp <= 0 {
			return fmt.Errorf("flow[%d]: timestamp is required for propose", index)
		}
		if step.DurationS <= 0 {
			return fmt.Errorf("flow[%d]: duration_s is required for propose", index)
		}
	case ActionApprove, ActionBroadcast:
		if step.Ref == "" {
			return fmt.Errorf("flow[%d]: ref is required for %s", index, step.Action)
		}
	case ActionLookup:
		if step.Owner == "" {
			return fmt.Errorf("flow[%d]: owner is required for lookup", index)
		}
		if !provisioned[step.Owner] {
			return fmt.Errorf("flow[%d]: owner %q is not in the roster", index, step.Owner)
		}
	case "":
		return fmt.Errorf("flow[%d]: action is required", index)
	default:
		return fmt.Errorf("flow[%d]: unknown action %q", index, step.Action)
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, provisioned map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertToken:
		if a.Owner == "" {
			return fmt.Errorf("assertions[%d]: owner is required for token", index)
		}
		if !provisioned[a.Owner] {
			return fmt.Errorf("assertions[%d]: owner %q is not in the roster", index, a.Owner)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

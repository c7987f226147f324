package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/Quantumplation/daml-trace/internal/notify"
	"github.com/Quantumplation/daml-trace/internal/record"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type == "invocation" {
				fmt.Fprintf(&buf, "  [%d] %s as %s %v\n", i+1, event.Action, event.Caller, event.Args)
			}
		}
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains an invocation of the
// given action, optionally restricted by caller and completion case.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for i, event := range trace {
		if event.Type != "invocation" || event.Action != assertion.Action {
			continue
		}
		if assertion.As != "" && event.Caller != assertion.As {
			continue
		}
		if assertion.Case != "" {
			// Each invocation is immediately followed by its completion.
			if i+1 >= len(trace) || trace[i+1].Case != assertion.Case {
				continue
			}
		}
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: describeContains(assertion),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func describeContains(assertion Assertion) string {
	desc := fmt.Sprintf("action %s", assertion.Action)
	if assertion.As != "" {
		desc += fmt.Sprintf(" as %s", assertion.As)
	}
	if assertion.Case != "" {
		desc += fmt.Sprintf(" with case %s", assertion.Case)
	}
	return desc
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	// Find first position of each expected action
	positions := make(map[string]int)

	for i, event := range trace {
		if event.Type == "invocation" {
			for _, expectedAction := range assertion.Actions {
				if event.Action == expectedAction && positions[expectedAction] == 0 {
					positions[expectedAction] = i + 1 // 1-indexed for readability
				}
			}
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev := assertion.Actions[i-1]
		curr := assertion.Actions[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the action appears exactly the specified
// number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0

	for _, event := range trace {
		if event.Type == "invocation" && event.Action == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertToken checks whether a party holds a notification token after
// the flow finished. The query runs as the owner themselves, so it sees
// exactly what that party would see.
func assertToken(ctx context.Context, notifier *notify.Store, assertion Assertion) error {
	owner := record.Party(assertion.Owner)
	_, found, err := notifier.Lookup(ctx, owner, owner)
	if err != nil {
		return &AssertionError{
			Type:     AssertToken,
			Expected: fmt.Sprintf("token lookup for %s", assertion.Owner),
			Actual:   fmt.Sprintf("lookup error: %v", err),
		}
	}

	if found != assertion.Exists {
		return &AssertionError{
			Type:     AssertToken,
			Expected: fmt.Sprintf("token for %s exists=%v", assertion.Owner, assertion.Exists),
			Actual:   fmt.Sprintf("exists=%v", found),
		}
	}

	return nil
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Notifier *notify.Store
	Ctx      context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides token store access for token assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertToken:
			if actx == nil || actx.Notifier == nil {
				err = fmt.Errorf("assertion[%d]: token requires notify store context", i)
			} else {
				err = assertToken(actx.Ctx, actx.Notifier, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

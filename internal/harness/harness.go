package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Quantumplation/daml-trace/internal/agreement"
	"github.com/Quantumplation/daml-trace/internal/ledger"
	"github.com/Quantumplation/daml-trace/internal/notify"
	"github.com/Quantumplation/daml-trace/internal/record"
	"github.com/Quantumplation/daml-trace/internal/testutil"
)

// Harness is the scenario execution engine.
type Harness struct {
	ledger   *ledger.Store
	machine  *agreement.Machine
	notifier *notify.Store
	clock    *testutil.DeterministicClock
	logger   *slog.Logger

	// handles maps save-names to the handle each step produced.
	handles map[string]record.Handle
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Open a fresh in-memory ledger with sequence handles
// 2. Execute flow steps, validating expect clauses against real outcomes
// 3. Evaluate assertions against the trace and token state
func Run(scenario *Scenario) (*Result, error) {
	st, err := ledger.Open(":memory:",
		ledger.WithHandleGenerator(record.NewSequenceHandleGenerator()))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory ledger: %w", err)
	}
	defer st.Close()

	h := &Harness{
		ledger:   st,
		machine:  agreement.New(st),
		notifier: notify.New(st),
		clock:    testutil.NewDeterministicClock(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		handles:  make(map[string]record.Handle),
	}

	ctx := context.Background()

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		Notifier: h.notifier,
		Ctx:      ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeFlow runs all flow steps and validates expect clauses.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	// Restore global logger after the flow; the engines log via slog's
	// default logger and scenario runs should stay quiet.
	prev := slog.Default()
	slog.SetDefault(h.logger)
	defer slog.SetDefault(prev)

	for i, step := range flow {
		result.AddInvocation(step.Action, step.As, stepArgs(step), h.clock.Next())

		outcome, stepResult, err := h.executeStep(ctx, step)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		result.AddCompletion(step.Action, outcome, stepResult, h.clock.Next())

		expected := step.Expect
		if expected == nil {
			// Steps without an expect clause must succeed.
			if isErrorCase(outcome) {
				result.AddError(fmt.Sprintf(
					"flow step %d (%s as %s): expected success, got %s",
					i, step.Action, step.As, outcome))
			}
		} else if outcome != expected.Case {
			result.AddError(fmt.Sprintf(
				"flow step %d (%s as %s): expected case %s, got %s",
				i, step.Action, step.As, expected.Case, outcome))
		}

		h.logger.Info("flow step completed",
			"step", i,
			"action", step.Action,
			"caller", step.As,
			"case", outcome,
		)
	}

	return nil
}

// executeStep invokes one operation against the real engines and
// returns the outcome case plus the result fields for the trace.
// Domain errors become outcome cases; anything else aborts the run.
func (h *Harness) executeStep(ctx context.Context, step FlowStep) (string, map[string]any, error) {
	caller := record.Party(step.As)

	switch step.Action {
	case ActionPropose:
		parties := make([]record.Party, len(step.Parties))
		for i, p := range step.Parties {
			parties[i] = record.Party(p)
		}
		set, err := record.NewSet(parties...)
		if err != nil {
			return string(agreement.CodeInvalidProposal), nil, nil
		}
		draft := record.ContactDraft{
			Timestamp: time.Unix(step.Timestamp, 0).UTC(),
			Duration:  time.Duration(step.DurationS) * time.Second,
			Parties:   set,
		}
		outcome, err := h.machine.Propose(ctx, draft, caller)
		if err != nil {
			return h.errorCase(err)
		}
		h.bind(step.Save, outcome.Handle)
		return "Proposed", map[string]any{"handle": string(outcome.Handle)}, nil

	case ActionApprove:
		handle, err := h.resolveRef(step.Ref)
		if err != nil {
			return "", nil, err
		}
		outcome, err := h.machine.Approve(ctx, handle, caller)
		if err != nil {
			return h.errorCase(err)
		}
		h.bind(step.Save, outcome.Handle)
		return string(outcome.State), map[string]any{"handle": string(outcome.Handle)}, nil

	case ActionBroadcast:
		handle, err := h.resolveRef(step.Ref)
		if err != nil {
			return "", nil, err
		}
		tokens, err := h.notifier.Broadcast(ctx, handle, caller)
		if err != nil {
			return h.errorCase(err)
		}
		tokenList := make([]any, len(tokens))
		for i, tok := range tokens {
			tokenList[i] = string(tok)
		}
		return "Broadcast", map[string]any{"tokens": tokenList}, nil

	case ActionLookup:
		owner := record.Party(step.Owner)
		token, found, err := h.notifier.Lookup(ctx, owner, caller)
		if err != nil {
			return h.errorCase(err)
		}
		if !found {
			return "NotFound", nil, nil
		}
		return "Found", map[string]any{"token": string(token)}, nil

	default:
		return "", nil, fmt.Errorf("unknown action %q", step.Action)
	}
}

// errorCase maps a domain error to its outcome case.
// Non-domain errors (I/O, corruption) abort the scenario instead.
func (h *Harness) errorCase(err error) (string, map[string]any, error) {
	var agrErr *agreement.Error
	if errors.As(err, &agrErr) {
		return string(agrErr.Code), nil, nil
	}
	var ledErr *ledger.Error
	if errors.As(err, &ledErr) {
		return string(ledErr.Code), nil, nil
	}
	return "", nil, err
}

// bind records the handle a step produced under its save name.
func (h *Harness) bind(name string, handle record.Handle) {
	if name != "" {
		h.handles[name] = handle
	}
}

// resolveRef looks up a handle bound by an earlier step.
func (h *Harness) resolveRef(name string) (record.Handle, error) {
	handle, ok := h.handles[name]
	if !ok {
		return "", fmt.Errorf("ref %q is not bound by any earlier step", name)
	}
	return handle, nil
}

// stepArgs extracts the invocation arguments for the trace.
func stepArgs(step FlowStep) map[string]any {
	args := map[string]any{}
	switch step.Action {
	case ActionPropose:
		parties := make([]any, len(step.Parties))
		for i, p := range step.Parties {
			parties[i] = p
		}
		args["parties"] = parties
		args["timestamp"] = step.Timestamp
		args["duration_s"] = step.DurationS
	case ActionApprove, ActionBroadcast:
		args["ref"] = step.Ref
	case ActionLookup:
		args["owner"] = step.Owner
	}
	return args
}

// isErrorCase reports whether an outcome case names a rejection.
// Success cases are Proposed, Pending, Finished, Broadcast, Found,
// and NotFound; everything else is an error code.
func isErrorCase(outcome string) bool {
	switch outcome {
	case "Proposed", string(agreement.StatePending), string(agreement.StateFinished),
		"Broadcast", "Found", "NotFound":
		return false
	}
	return true
}

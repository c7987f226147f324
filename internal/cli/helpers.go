package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/Quantumplation/daml-trace/internal/agreement"
	"github.com/Quantumplation/daml-trace/internal/ledger"
	"github.com/Quantumplation/daml-trace/internal/record"
	"github.com/Quantumplation/daml-trace/internal/roster"
)

// openLedger opens the ledger database named by --db.
// The file is created on first use, so only open errors are fatal.
func openLedger(opts *RootOptions) (*ledger.Store, error) {
	st, err := ledger.Open(opts.DB)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to open ledger %s", opts.DB), err)
	}
	return st, nil
}

// loadRoster compiles the roster directory when --roster is set.
// Returns nil when no roster was requested; party validation is then
// skipped and any identifier is accepted.
func loadRoster(opts *RootOptions) (*roster.Roster, error) {
	if opts.Roster == "" {
		return nil, nil
	}
	if _, err := os.Stat(opts.Roster); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("roster directory not found: %s", opts.Roster))
	}
	r, err := roster.LoadDir(opts.Roster)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to compile roster", err)
	}
	return r, nil
}

// requireParty validates one party identifier against the roster.
// With no roster loaded, any non-empty identifier passes.
func requireParty(r *roster.Roster, id string) (record.Party, error) {
	if id == "" {
		return "", NewExitError(ExitCommandError, "party identifier must be non-empty (use --as)")
	}
	p := record.Party(id)
	if r != nil && !r.Contains(p) {
		return "", NewExitError(ExitCommandError, fmt.Sprintf("party %q is not in the roster", id))
	}
	return p, nil
}

// requireParties validates a list of party identifiers.
func requireParties(r *roster.Roster, ids []string) ([]record.Party, error) {
	parties := make([]record.Party, len(ids))
	for i, id := range ids {
		p, err := requireParty(r, id)
		if err != nil {
			return nil, err
		}
		parties[i] = p
	}
	return parties, nil
}

// domainErrorCode extracts the error code from a ledger or agreement
// error, or "" when err is not a domain rejection.
func domainErrorCode(err error) string {
	var agrErr *agreement.Error
	if errors.As(err, &agrErr) {
		return string(agrErr.Code)
	}
	var ledErr *ledger.Error
	if errors.As(err, &ledErr) {
		return string(ledErr.Code)
	}
	return ""
}

// outcomeData renders a Propose/Approve outcome for output.
func outcomeData(o agreement.Outcome) map[string]any {
	data := map[string]any{
		"state":  string(o.State),
		"handle": string(o.Handle),
	}
	switch o.State {
	case agreement.StatePending:
		data["parties"] = o.Proposal.Draft.Parties.Strings()
		data["approved_by"] = o.Proposal.ApprovedBy.Strings()
	case agreement.StateFinished:
		data["parties"] = o.Contact.Parties.Strings()
	}
	return data
}

// reportDomainError prints a rejection through the formatter and
// returns an ExitError carrying failure status. Non-domain errors are
// returned unchanged for cobra to print.
func reportDomainError(f *OutputFormatter, err error) error {
	code := domainErrorCode(err)
	if code == "" {
		return err
	}
	if ferr := f.Error(code, err.Error(), nil); ferr != nil {
		return ferr
	}
	return NewExitError(ExitFailure, fmt.Sprintf("rejected: %s", code))
}

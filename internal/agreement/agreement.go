package agreement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Quantumplation/daml-trace/internal/ledger"
	"github.com/Quantumplation/daml-trace/internal/record"
)

// State names the two states of an agreement run.
type State string

const (
	// StatePending means the proposal is awaiting further approvals.
	StatePending State = "Pending"

	// StateFinished means the contact record has been committed.
	// Finished is terminal and irreversible.
	StateFinished State = "Finished"
)

// Outcome is the result of a successful Propose or Approve submission.
// Exactly one of Proposal/Contact is meaningful, selected by State.
type Outcome struct {
	State    State
	Handle   record.Handle
	Proposal record.Proposal // valid when State == StatePending
	Contact  record.Contact  // valid when State == StateFinished
}

// Machine drives proposals through unanimous approval against a ledger.
//
// The machine is stateless: all shared state lives in the ledger, so
// any number of Machine values (one per caller, typically) may operate
// on the same store concurrently.
type Machine struct {
	ledger *ledger.Store
}

// New creates a Machine over the given ledger.
func New(led *ledger.Store) *Machine {
	return &Machine{ledger: led}
}

// Propose submits a draft encounter on behalf of proposer and returns
// the Pending outcome holding the fresh proposal handle.
//
// Preconditions: the proposer is a listed party and the party list is
// nonempty with no duplicates (duplicate rejection is enforced by
// record.Set construction upstream). Fails with INVALID_PROPOSAL
// otherwise.
//
// The stored proposal's authorizers are exactly {proposer}; its viewers
// and actors are the full party list, so every named party can discover
// it and act on it before approving.
func (m *Machine) Propose(ctx context.Context, draft record.ContactDraft, proposer record.Party) (Outcome, error) {
	if draft.Parties.Len() == 0 {
		return Outcome{}, &Error{
			Code:    CodeInvalidProposal,
			Message: "draft names no parties",
			Party:   proposer,
		}
	}
	if !draft.Parties.Contains(proposer) {
		return Outcome{}, &Error{
			Code:    CodeInvalidProposal,
			Message: "proposer is not a listed party",
			Party:   proposer,
		}
	}

	prop := record.Proposal{Draft: draft, ApprovedBy: record.MustSet(proposer)}
	handle, err := m.ledger.Append(ctx, proposer, ledger.Record{
		Kind:        record.KindProposal,
		Body:        prop.Body(),
		Authorizers: prop.ApprovedBy,
		Viewers:     draft.Parties,
		Actors:      draft.Parties,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("propose: %w", err)
	}

	slog.Info("proposal created",
		"handle", handle,
		"proposer", proposer,
		"parties", draft.Parties.Strings(),
	)

	return Outcome{State: StatePending, Handle: handle, Proposal: prop}, nil
}

// Approve records approver's consent to a pending proposal.
//
// Preconditions are checked in order, each with a distinct failure:
//  1. approver is a listed party, else NOT_A_PARTY
//  2. approver has not already approved, else DUPLICATE_APPROVAL
//  3. the handle is still current, else STALE_HANDLE (another approval
//     raced ahead - refetch via PendingFor and retry)
//
// If the grown approval set equals the party set (as sets, order
// irrelevant), the proposal is consumed and the finished contact is
// created atomically: authorizers, viewers, and actors all equal the
// party list. Otherwise the proposal is replaced by a new version whose
// authorizers are the grown approval set, viewers and actors unchanged.
func (m *Machine) Approve(ctx context.Context, handle record.Handle, approver record.Party) (Outcome, error) {
	rec, err := m.ledger.Resolve(ctx, handle)
	if err != nil {
		return Outcome{}, fmt.Errorf("approve: %w", err)
	}
	if rec.Kind != record.KindProposal {
		return Outcome{}, fmt.Errorf("approve: record %s is not a proposal", handle)
	}

	prop, err := record.DecodeProposal(rec.Body)
	if err != nil {
		return Outcome{}, fmt.Errorf("approve: %w", err)
	}

	if !prop.Draft.Parties.Contains(approver) {
		return Outcome{}, &Error{
			Code:    CodeNotAParty,
			Message: "approver is not a listed party",
			Handle:  handle,
			Party:   approver,
		}
	}
	if prop.ApprovedBy.Contains(approver) {
		return Outcome{}, &Error{
			Code:    CodeDuplicateApproval,
			Message: "party has already approved this proposal",
			Handle:  handle,
			Party:   approver,
		}
	}

	approved, err := prop.ApprovedBy.With(approver)
	if err != nil {
		return Outcome{}, fmt.Errorf("approve: %w", err)
	}

	if approved.Equal(prop.Draft.Parties) {
		// Unanimous: consume the proposal and commit the contact in
		// one transaction.
		contact := record.Contact{
			Timestamp: prop.Draft.Timestamp,
			Duration:  prop.Draft.Duration,
			Parties:   prop.Draft.Parties,
		}
		newHandle, err := m.ledger.Replace(ctx, approver, handle, ledger.Record{
			Kind:        record.KindContact,
			Body:        contact.Body(),
			Authorizers: contact.Parties,
			Viewers:     contact.Parties,
			Actors:      contact.Parties,
		})
		if err != nil {
			return Outcome{}, fmt.Errorf("approve: %w", err)
		}

		slog.Info("contact committed",
			"handle", newHandle,
			"approver", approver,
			"parties", contact.Parties.Strings(),
		)

		return Outcome{State: StateFinished, Handle: newHandle, Contact: contact}, nil
	}

	next := record.Proposal{Draft: prop.Draft, ApprovedBy: approved}
	newHandle, err := m.ledger.Replace(ctx, approver, handle, ledger.Record{
		Kind:        record.KindProposal,
		Body:        next.Body(),
		Authorizers: approved,
		Viewers:     prop.Draft.Parties,
		Actors:      prop.Draft.Parties,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("approve: %w", err)
	}

	slog.Info("approval recorded",
		"handle", newHandle,
		"prev_handle", handle,
		"approver", approver,
		"approved_by", approved.Strings(),
	)

	return Outcome{State: StatePending, Handle: newHandle, Proposal: next}, nil
}

// PendingFor returns the pending proposals visible to a party, oldest
// first, each paired with its current handle. A party uses this to
// discover proposals naming it and to refetch after a STALE_HANDLE.
func (m *Machine) PendingFor(ctx context.Context, party record.Party) ([]Outcome, error) {
	recs, err := m.ledger.VisibleRecords(ctx, party, record.KindProposal)
	if err != nil {
		return nil, fmt.Errorf("pending proposals: %w", err)
	}

	outcomes := []Outcome{}
	for _, rec := range recs {
		prop, err := record.DecodeProposal(rec.Body)
		if err != nil {
			return nil, fmt.Errorf("pending proposals: record %s: %w", rec.Handle, err)
		}
		outcomes = append(outcomes, Outcome{
			State:    StatePending,
			Handle:   rec.Handle,
			Proposal: prop,
		})
	}
	return outcomes, nil
}

// FetchContact retrieves a finished contact on behalf of a caller.
// Visibility follows the ledger: only listed parties may read it.
func (m *Machine) FetchContact(ctx context.Context, handle record.Handle, caller record.Party) (record.Contact, error) {
	rec, err := m.ledger.Fetch(ctx, handle, caller)
	if err != nil {
		return record.Contact{}, fmt.Errorf("fetch contact: %w", err)
	}
	if rec.Kind != record.KindContact {
		return record.Contact{}, fmt.Errorf("fetch contact: record %s is not a contact", handle)
	}
	contact, err := record.DecodeContact(rec.Body)
	if err != nil {
		return record.Contact{}, fmt.Errorf("fetch contact: %w", err)
	}
	return contact, nil
}

// FetchProposal retrieves a pending proposal on behalf of a caller.
// Every listed party may read a proposal before approving it.
func (m *Machine) FetchProposal(ctx context.Context, handle record.Handle, caller record.Party) (record.Proposal, error) {
	rec, err := m.ledger.Fetch(ctx, handle, caller)
	if err != nil {
		return record.Proposal{}, fmt.Errorf("fetch proposal: %w", err)
	}
	if rec.Kind != record.KindProposal {
		return record.Proposal{}, fmt.Errorf("fetch proposal: record %s is not a proposal", handle)
	}
	prop, err := record.DecodeProposal(rec.Body)
	if err != nil {
		return record.Proposal{}, fmt.Errorf("fetch proposal: %w", err)
	}
	return prop, nil
}

package agreement

import (
	"errors"
	"fmt"

	"github.com/Quantumplation/daml-trace/internal/record"
)

// Error represents a precondition failure detected by the agreement
// machine. These are reported to the caller and never retried
// automatically; concurrency conflicts surface as ledger STALE_HANDLE
// errors instead.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Handle identifies the affected proposal version, when known.
	Handle record.Handle

	// Party identifies the party the submission was attributed to.
	Party record.Party
}

// ErrorCode categorizes agreement errors.
type ErrorCode string

const (
	// CodeInvalidProposal indicates the draft violates a precondition:
	// the proposer is not a listed party, or the party list is empty
	// or contains duplicates.
	CodeInvalidProposal ErrorCode = "INVALID_PROPOSAL"

	// CodeNotAParty indicates the approver is not named in the draft.
	CodeNotAParty ErrorCode = "NOT_A_PARTY"

	// CodeDuplicateApproval indicates the approver already approved
	// this proposal lineage.
	CodeDuplicateApproval ErrorCode = "DUPLICATE_APPROVAL"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Handle != "" && e.Party != "" {
		return fmt.Sprintf("%s: %s (handle=%s, party=%s)", e.Code, e.Message, e.Handle, e.Party)
	}
	if e.Party != "" {
		return fmt.Sprintf("%s: %s (party=%s)", e.Code, e.Message, e.Party)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidProposal returns true for draft precondition failures.
// Uses errors.As to handle wrapped errors.
func IsInvalidProposal(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == CodeInvalidProposal
	}
	return false
}

// IsNotAParty returns true when an approver is not named in the draft.
// Uses errors.As to handle wrapped errors.
func IsNotAParty(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == CodeNotAParty
	}
	return false
}

// IsDuplicateApproval returns true for repeated approvals.
// Uses errors.As to handle wrapped errors.
func IsDuplicateApproval(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == CodeDuplicateApproval
	}
	return false
}

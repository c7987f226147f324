package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Quantumplation/daml-trace/internal/agreement"
	"github.com/Quantumplation/daml-trace/internal/record"
)

// ProposeOptions holds flags for the propose command.
type ProposeOptions struct {
	*RootOptions
	As        string
	Parties   []string
	Timestamp int64
	Duration  int64
}

// NewProposeCommand creates the propose command.
func NewProposeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProposeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Propose a new contact record",
		Long: `Propose an encounter record for unanimous approval.

The proposer must be one of the listed parties and counts as having
approved. Every listed party can see the proposal and approve it.

Exit codes:
  0 - Proposal submitted
  1 - Proposal rejected (INVALID_PROPOSAL)
  2 - Command error (bad flags, database not found, etc.)

Examples:
  trace propose --as alice --party alice --party bob --timestamp 1600000000 --duration 300
  trace propose --as alice --party alice,bob,charlie --timestamp 1600000000 --duration 300 --roster ./parties`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPropose(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "party submitting the proposal")
	cmd.Flags().StringSliceVar(&opts.Parties, "party", nil, "party of the contact (repeatable)")
	cmd.Flags().Int64Var(&opts.Timestamp, "timestamp", 0, "contact time as unix seconds")
	cmd.Flags().Int64Var(&opts.Duration, "duration", 0, "contact duration in seconds")

	return cmd
}

func runPropose(opts *ProposeOptions, cmd *cobra.Command) error {
	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Timestamp <= 0 {
		return NewExitError(ExitCommandError, "--timestamp is required (unix seconds)")
	}
	if opts.Duration <= 0 {
		return NewExitError(ExitCommandError, "--duration is required (seconds)")
	}

	r, err := loadRoster(opts.RootOptions)
	if err != nil {
		return err
	}
	proposer, err := requireParty(r, opts.As)
	if err != nil {
		return err
	}
	parties, err := requireParties(r, opts.Parties)
	if err != nil {
		return err
	}
	set, err := record.NewSet(parties...)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid party list", err)
	}

	st, err := openLedger(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	draft := record.ContactDraft{
		Timestamp: time.Unix(opts.Timestamp, 0).UTC(),
		Duration:  time.Duration(opts.Duration) * time.Second,
		Parties:   set,
	}

	outcome, err := agreement.New(st).Propose(cmd.Context(), draft, proposer)
	if err != nil {
		return reportDomainError(f, err)
	}

	if opts.Format == "json" {
		return f.Success(outcomeData(outcome))
	}

	outstanding := outstandingParties(outcome)
	fmt.Fprintf(cmd.OutOrStdout(), "Proposed %s\n", outcome.Handle)
	fmt.Fprintf(cmd.OutOrStdout(), "Awaiting approval from: %s\n", strings.Join(outstanding, ", "))
	return nil
}

// outstandingParties lists the parties that have not approved yet.
func outstandingParties(o agreement.Outcome) []string {
	var out []string
	for _, p := range o.Proposal.Draft.Parties.Members() {
		if !o.Proposal.ApprovedBy.Contains(p) {
			out = append(out, string(p))
		}
	}
	return out
}

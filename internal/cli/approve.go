package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Quantumplation/daml-trace/internal/agreement"
	"github.com/Quantumplation/daml-trace/internal/record"
)

// ApproveOptions holds flags for the approve command.
type ApproveOptions struct {
	*RootOptions
	As string
}

// NewApproveCommand creates the approve command.
func NewApproveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApproveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "approve <handle>",
		Short: "Approve a pending proposal",
		Long: `Approve a pending proposal as one of its parties.

Approval consumes the proposal version named by the handle and issues a
fresh handle for the successor. When the approval is the last one
outstanding, the contact record commits instead and its handle is
printed.

A STALE_HANDLE rejection means another approval landed first: fetch the
current version (trace pending) and retry with its handle.

Exit codes:
  0 - Approval recorded (Pending or Finished)
  1 - Approval rejected (NOT_A_PARTY, DUPLICATE_APPROVAL, STALE_HANDLE, ...)
  2 - Command error

Examples:
  trace approve 018f3b2a-... --as bob`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApprove(opts, record.Handle(args[0]), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "party approving the proposal")

	return cmd
}

func runApprove(opts *ApproveOptions, handle record.Handle, cmd *cobra.Command) error {
	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	r, err := loadRoster(opts.RootOptions)
	if err != nil {
		return err
	}
	approver, err := requireParty(r, opts.As)
	if err != nil {
		return err
	}

	st, err := openLedger(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	outcome, err := agreement.New(st).Approve(cmd.Context(), handle, approver)
	if err != nil {
		return reportDomainError(f, err)
	}

	if opts.Format == "json" {
		return f.Success(outcomeData(outcome))
	}

	w := cmd.OutOrStdout()
	switch outcome.State {
	case agreement.StateFinished:
		fmt.Fprintf(w, "Finished: contact committed as %s\n", outcome.Handle)
	default:
		fmt.Fprintf(w, "Approved: proposal is now %s\n", outcome.Handle)
		fmt.Fprintf(w, "Awaiting approval from: %s\n", strings.Join(outstandingParties(outcome), ", "))
	}
	return nil
}

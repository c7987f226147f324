package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Quantumplation/daml-trace/internal/agreement"
)

// PendingOptions holds flags for the pending command.
type PendingOptions struct {
	*RootOptions
	As string
}

// NewPendingCommand creates the pending command.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PendingOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List proposals visible to a party",
		Long: `List the live proposals a party can see, in deterministic order.

This is how a party discovers proposals awaiting their approval, and
how a STALE_HANDLE retry finds the current version.

Exit codes:
  0 - Listed (possibly empty)
  2 - Command error`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPending(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "party listing their proposals")

	return cmd
}

func runPending(opts *PendingOptions, cmd *cobra.Command) error {
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
	caller, err := requireParty(r, opts.As)
	if err != nil {
		return err
	}

	st, err := openLedger(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	outcomes, err := agreement.New(st).PendingFor(cmd.Context(), caller)
	if err != nil {
		return reportDomainError(f, err)
	}

	if opts.Format == "json" {
		list := make([]any, len(outcomes))
		for i, o := range outcomes {
			list[i] = outcomeData(o)
		}
		return f.Success(map[string]any{"proposals": list, "count": len(outcomes)})
	}

	w := cmd.OutOrStdout()
	if len(outcomes) == 0 {
		fmt.Fprintln(w, "No pending proposals.")
		return nil
	}
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s  parties: %s  approved: %s\n",
			o.Handle,
			strings.Join(o.Proposal.Draft.Parties.Strings(), ","),
			strings.Join(o.Proposal.ApprovedBy.Strings(), ","),
		)
	}
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Quantumplation/daml-trace/internal/notify"
	"github.com/Quantumplation/daml-trace/internal/record"
)

// BroadcastOptions holds flags for the broadcast command.
type BroadcastOptions struct {
	*RootOptions
	As string
}

// NewBroadcastCommand creates the broadcast command.
func NewBroadcastCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BroadcastOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "broadcast <contact-handle>",
		Short: "Broadcast a health-risk signal over a finished contact",
		Long: `Notify every party of a finished contact, the informant included.

Token creation is idempotent per recipient: broadcasting the same
contact twice, or overlapping broadcasts from different contacts,
leave each recipient with exactly one token. The command prints only
the number of recipients; tokens are private to their owners.

Exit codes:
  0 - Broadcast delivered
  1 - Rejected (AUTHORIZATION, STALE_HANDLE, ...)
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBroadcast(opts, record.Handle(args[0]), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "informant party")

	return cmd
}

func runBroadcast(opts *BroadcastOptions, handle record.Handle, cmd *cobra.Command) error {
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
	informant, err := requireParty(r, opts.As)
	if err != nil {
		return err
	}

	st, err := openLedger(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	tokens, err := notify.New(st).Broadcast(cmd.Context(), handle, informant)
	if err != nil {
		return reportDomainError(f, err)
	}

	if opts.Format == "json" {
		// Token handles stay private: report the fan-out size only.
		return f.Success(map[string]any{"recipients": len(tokens)})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Broadcast delivered to %d recipient(s)\n", len(tokens))
	return nil
}

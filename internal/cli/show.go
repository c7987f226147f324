package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Quantumplation/daml-trace/internal/ledger"
	"github.com/Quantumplation/daml-trace/internal/record"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	As string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <handle>",
		Short: "Show a record visible to a party",
		Long: `Show the record named by a handle, as seen by --as.

Handles of consumed versions, unknown handles, and records the party
may not see all answer NOT_VISIBLE: the command never reveals whether
such a record exists.

Exit codes:
  0 - Record shown
  1 - NOT_VISIBLE
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, record.Handle(args[0]), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "party reading the record")

	return cmd
}

func runShow(opts *ShowOptions, handle record.Handle, cmd *cobra.Command) error {
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

	rec, err := st.Fetch(cmd.Context(), handle, caller)
	if err != nil {
		return reportDomainError(f, err)
	}

	data, err := recordData(rec)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to decode record", err)
	}

	if opts.Format == "json" {
		return f.Success(data)
	}
	printRecordText(cmd, rec, data)
	return nil
}

// recordData renders a ledger record for output, decoding the body by
// kind.
func recordData(rec ledger.Record) (map[string]any, error) {
	data := map[string]any{
		"handle": string(rec.Handle),
		"kind":   rec.Kind,
		"seq":    rec.Seq,
	}

	switch rec.Kind {
	case record.KindProposal:
		p, err := record.DecodeProposal(rec.Body)
		if err != nil {
			return nil, err
		}
		data["timestamp"] = p.Draft.Timestamp.Unix()
		data["duration_s"] = int64(p.Draft.Duration / time.Second)
		data["parties"] = p.Draft.Parties.Strings()
		data["approved_by"] = p.ApprovedBy.Strings()
	case record.KindContact:
		c, err := record.DecodeContact(rec.Body)
		if err != nil {
			return nil, err
		}
		data["timestamp"] = c.Timestamp.Unix()
		data["duration_s"] = int64(c.Duration / time.Second)
		data["parties"] = c.Parties.Strings()
	default:
		data["body"] = rec.Body
	}
	return data, nil
}

// printRecordText writes a human-readable record description.
func printRecordText(cmd *cobra.Command, rec ledger.Record, data map[string]any) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s %s\n", rec.Kind, rec.Handle)
	if ts, ok := data["timestamp"].(int64); ok {
		fmt.Fprintf(w, "  time:     %s\n", time.Unix(ts, 0).UTC().Format(time.RFC3339))
	}
	if d, ok := data["duration_s"].(int64); ok {
		fmt.Fprintf(w, "  duration: %ds\n", d)
	}
	if parties, ok := data["parties"].([]string); ok {
		fmt.Fprintf(w, "  parties:  %s\n", strings.Join(parties, ", "))
	}
	if approved, ok := data["approved_by"].([]string); ok {
		fmt.Fprintf(w, "  approved: %s\n", strings.Join(approved, ", "))
	}
}

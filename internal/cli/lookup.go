package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Quantumplation/daml-trace/internal/notify"
)

// LookupOptions holds flags for the lookup command.
type LookupOptions struct {
	*RootOptions
	As    string
	Owner string
}

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LookupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Look up a party's own notification token",
		Long: `Look up the notification token owned by a party.

Only the owner can query their token: asking about anyone else answers
NOT_VISIBLE whether or not a token exists. --owner defaults to --as.

Exit codes:
  0 - Lookup answered (token found or not)
  1 - NOT_VISIBLE
  2 - Command error`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "party performing the lookup")
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "token owner (defaults to --as)")

	return cmd
}

func runLookup(opts *LookupOptions, cmd *cobra.Command) error {
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
	owner := caller
	if opts.Owner != "" {
		owner, err = requireParty(r, opts.Owner)
		if err != nil {
			return err
		}
	}

	st, err := openLedger(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	token, found, err := notify.New(st).Lookup(cmd.Context(), owner, caller)
	if err != nil {
		return reportDomainError(f, err)
	}

	if opts.Format == "json" {
		data := map[string]any{"found": found}
		if found {
			data["token"] = string(token)
		}
		return f.Success(data)
	}

	w := cmd.OutOrStdout()
	if !found {
		fmt.Fprintln(w, "No token.")
		return nil
	}
	fmt.Fprintf(w, "Token: %s\n", token)
	return nil
}

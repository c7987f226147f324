package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Quantumplation/daml-trace/internal/roster"
)

// NewRosterCommand creates the roster command.
func NewRosterCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster <dir>",
		Short: "Compile and print a party roster",
		Long: `Compile the CUE roster files in a directory and print the
provisioned parties.

Compilation errors are reported with their source position. Use this
to check a roster before passing it via --roster.

Exit codes:
  0 - Roster compiled
  1 - Compilation failed
  2 - Command error

Examples:
  trace roster ./parties
  trace roster ./parties --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoster(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runRoster(opts *RootOptions, dir string, cmd *cobra.Command) error {
	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	r, err := roster.LoadDir(dir)
	if err != nil {
		if ferr := f.Error("E_ROSTER", err.Error(), nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitFailure, "roster compilation failed")
	}

	if opts.Format == "json" {
		parties := make([]any, len(r.Parties))
		for i, p := range r.Parties {
			parties[i] = map[string]any{"id": string(p.ID), "name": p.Name}
		}
		return f.Success(map[string]any{"parties": parties, "count": len(r.Parties)})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%d part(ies):\n", len(r.Parties))
	for _, p := range r.Parties {
		fmt.Fprintf(w, "  %-20s %s\n", p.ID, p.Name)
	}
	return nil
}

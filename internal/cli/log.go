package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	All bool
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the full record log (operator view)",
		Long: `Show every record version in the ledger in seq order.

This is an operator-level audit view that bypasses per-party
visibility. It shows live and consumed versions alike; use --all=false
to hide consumed versions.

Exit codes:
  0 - Log printed
  2 - Command error`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", true, "include consumed versions")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := openLedger(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.AllRecords(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read log", err)
	}

	if opts.Format == "json" {
		list := make([]any, 0, len(records))
		for _, rec := range records {
			if rec.Consumed && !opts.All {
				continue
			}
			data, err := recordData(rec)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to decode record", err)
			}
			data["consumed"] = rec.Consumed
			list = append(list, data)
		}
		return f.Success(map[string]any{"records": list, "count": len(list)})
	}

	w := cmd.OutOrStdout()
	printed := 0
	for _, rec := range records {
		if rec.Consumed && !opts.All {
			continue
		}
		status := "live"
		if rec.Consumed {
			status = "consumed"
		}
		fmt.Fprintf(w, "%4d  %-9s %-8s %s  auth=%s\n",
			rec.Seq,
			rec.Kind,
			status,
			rec.Handle,
			strings.Join(rec.Authorizers.Strings(), ","),
		)
		printed++
	}
	if printed == 0 {
		fmt.Fprintln(w, "Empty ledger.")
	}
	return nil
}

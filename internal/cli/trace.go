package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Flow     string
	Action   string
	Record   string
}

// ProvenanceView is a record and the records its rule firings invoked.
type ProvenanceView struct {
	Record ir.ActionRecord   `json:"record"`
	Caused []ir.ActionRecord `json:"caused"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect cascades stored in a trace log",
		Long: `Inspect the SQLite trace log written by serve or invoke --db.

Without --flow, lists the stored flows. With --flow, prints the records of
that cascade as a tree, with the rule that invoked each record, followed by
its faults. With --record, prints one record and the records its rule
firings invoked.

Examples:
  syncsim trace --db ./trace.db
  syncsim trace --db ./trace.db --flow 0190b6c2-...
  syncsim trace --db ./trace.db --flow 0190b6c2-... --action Renderer.render
  syncsim trace --db ./trace.db --record 3f2a... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite trace log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Flow, "flow", "", "flow token to print")
	cmd.Flags().StringVar(&opts.Action, "action", "", "only print records of this action")
	cmd.Flags().StringVar(&opts.Record, "record", "", "record id whose consequences to print")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	// Opening creates missing files; a typo should not leave an empty log.
	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.fail(ExitCommandError, "E005", fmt.Sprintf("trace log not found: %s", opts.Database), nil)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, "E005", fmt.Sprintf("open trace log: %v", err), nil)
	}
	defer st.Close()

	switch {
	case opts.Record != "":
		return traceRecord(opts, formatter, st, cmd)
	case opts.Flow != "":
		return traceFlow(opts, formatter, st, cmd)
	default:
		return listFlows(opts, formatter, st, cmd)
	}
}

func listFlows(opts *TraceOptions, f *OutputFormatter, st *store.Store, cmd *cobra.Command) error {
	flows, err := st.ListFlows(cmd.Context())
	if err != nil {
		return f.fail(ExitCommandError, "E001", fmt.Sprintf("list flows: %v", err), nil)
	}
	if opts.Format == "json" {
		return f.JSON(flows)
	}
	if len(flows) == 0 {
		fmt.Fprintln(f.Writer, "No flows recorded.")
		return nil
	}
	for _, fl := range flows {
		fmt.Fprintf(f.Writer, "%s  %-28s records=%d errors=%d faults=%d\n",
			fl.Flow, fl.Root, fl.Records, fl.Errors, fl.Faults)
	}
	return nil
}

func traceFlow(opts *TraceOptions, f *OutputFormatter, st *store.Store, cmd *cobra.Command) error {
	records, err := st.ReadFlow(cmd.Context(), opts.Flow)
	if err != nil {
		return f.fail(ExitCommandError, "E001", fmt.Sprintf("read flow: %v", err), nil)
	}
	faults, err := st.ReadFaults(cmd.Context(), opts.Flow)
	if err != nil {
		return f.fail(ExitCommandError, "E001", fmt.Sprintf("read faults: %v", err), nil)
	}
	if opts.Action != "" {
		filtered := records[:0]
		for _, rec := range records {
			if string(rec.Action) == opts.Action {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	view := viewFromStore(opts.Flow, records, faults)
	if opts.Format == "json" {
		return f.JSON(view)
	}
	writeCascade(f.Writer, view, opts.Verbose)
	return nil
}

func traceRecord(opts *TraceOptions, f *OutputFormatter, st *store.Store, cmd *cobra.Command) error {
	rec, ok, err := st.ReadRecord(cmd.Context(), opts.Record)
	if err != nil {
		return f.fail(ExitCommandError, "E001", fmt.Sprintf("read record: %v", err), nil)
	}
	if !ok {
		return f.fail(ExitFailure, "E005", fmt.Sprintf("record not found: %s", opts.Record), nil)
	}
	caused, err := st.ReadCaused(cmd.Context(), rec.ID)
	if err != nil {
		return f.fail(ExitCommandError, "E001", fmt.Sprintf("read caused records: %v", err), nil)
	}
	if caused == nil {
		caused = []ir.ActionRecord{}
	}

	if opts.Format == "json" {
		return f.JSON(ProvenanceView{Record: rec, Caused: caused})
	}
	w := f.Writer
	fmt.Fprintf(w, "[%d] %s (flow %s, depth %d)\n", rec.Seq, rec.Action, rec.Flow, rec.Depth)
	fmt.Fprintf(w, "  in:  %s\n  out: %s\n", canonical(rec.Input), canonical(rec.Output))
	if len(caused) == 0 {
		fmt.Fprintln(w, "  (caused nothing)")
	}
	for _, c := range caused {
		fmt.Fprintf(w, "  -[%s]-> [%d] %s\n", c.Rule, c.Seq, c.Action)
	}
	return nil
}

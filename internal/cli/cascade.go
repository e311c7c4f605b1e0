package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/store"
)

// CascadeView is the printable form of one flow.
type CascadeView struct {
	Flow    string            `json:"flow"`
	Records []ir.ActionRecord `json:"records"`
	Faults  []FaultView       `json:"faults"`
	Aborted bool              `json:"aborted,omitempty"`
}

// FaultView is a fault as printed by the CLI.
type FaultView struct {
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Rule     string       `json:"rule,omitempty"`
	Action   ir.ActionRef `json:"action,omitempty"`
	Variable string       `json:"variable,omitempty"`
	Depth    int          `json:"depth"`
	Cause    string       `json:"cause,omitempty"`
}

func viewFromOutcome(out *engine.Outcome) CascadeView {
	v := CascadeView{
		Flow:    out.Flow,
		Records: out.Records,
		Faults:  make([]FaultView, 0, len(out.Faults)),
		Aborted: out.Aborted,
	}
	for _, f := range out.Faults {
		v.Faults = append(v.Faults, faultView(f))
	}
	return v
}

func faultView(f *engine.Fault) FaultView {
	fv := FaultView{
		Code:     string(f.Code),
		Message:  f.Message,
		Rule:     f.Rule,
		Action:   f.Action,
		Variable: f.Variable,
		Depth:    f.Depth,
	}
	if f.Err != nil {
		fv.Cause = f.Err.Error()
	}
	return fv
}

func viewFromStore(flow string, records []ir.ActionRecord, faults []store.FaultRow) CascadeView {
	v := CascadeView{Flow: flow, Records: records, Faults: make([]FaultView, 0, len(faults))}
	for _, f := range faults {
		v.Faults = append(v.Faults, FaultView{
			Code:     f.Code,
			Message:  f.Message,
			Rule:     f.Rule,
			Action:   f.Action,
			Variable: f.Variable,
			Depth:    f.Depth,
			Cause:    f.Cause,
		})
		if f.Code == string(engine.FaultDepthExceeded) {
			v.Aborted = true
		}
	}
	return v
}

// writeCascade prints records as an indented tree: one line per record,
// indented by depth and tagged with the rule that invoked it. Verbose adds
// inputs and outputs.
func writeCascade(w io.Writer, v CascadeView, verbose bool) {
	fmt.Fprintf(w, "Flow: %s\n", v.Flow)
	if len(v.Records) == 0 {
		fmt.Fprintln(w, "  (no records)")
	}
	for _, rec := range v.Records {
		indent := strings.Repeat("  ", rec.Depth+1)
		line := fmt.Sprintf("%s[%d] %s", indent, rec.Seq, rec.Action)
		if rec.Rule != "" {
			line += "  <- " + rec.Rule
		}
		if rec.IsError() {
			line += "  ! " + rec.Output.String(ir.ErrorField)
		}
		fmt.Fprintln(w, line)
		if verbose {
			fmt.Fprintf(w, "%s    in:  %s\n", indent, canonical(rec.Input))
			fmt.Fprintf(w, "%s    out: %s\n", indent, canonical(rec.Output))
		}
	}
	for _, f := range v.Faults {
		fmt.Fprintf(w, "  fault %s at depth %d: %s", f.Code, f.Depth, f.Message)
		if f.Rule != "" {
			fmt.Fprintf(w, " (rule %s)", f.Rule)
		}
		if f.Cause != "" {
			fmt.Fprintf(w, ": %s", f.Cause)
		}
		fmt.Fprintln(w)
	}
	if v.Aborted {
		fmt.Fprintln(w, "  cascade aborted")
	}
}

func canonical(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

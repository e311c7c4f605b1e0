package harness

import (
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// TraceEvent is one action record of a flow step. Record ids are replaced
// by sequence numbers so snapshots stay readable.
type TraceEvent struct {
	Flow     string      `json:"flow"`
	Seq      int64       `json:"seq"`
	Depth    int         `json:"depth"`
	Action   string      `json:"action"`
	Input    ir.IRObject `json:"input"`
	Output   ir.IRObject `json:"output"`
	Rule     string      `json:"rule,omitempty"`
	CauseSeq int64       `json:"cause_seq,omitempty"`
}

// FaultEvent is one fault raised during a flow step.
type FaultEvent struct {
	Flow     string `json:"flow"`
	Code     string `json:"code"`
	Rule     string `json:"rule,omitempty"`
	Action   string `json:"action,omitempty"`
	Variable string `json:"variable,omitempty"`
	Depth    int    `json:"depth"`
}

func faultEvent(f *engine.Fault) FaultEvent {
	return FaultEvent{
		Flow:     f.Flow,
		Code:     string(f.Code),
		Rule:     f.Rule,
		Action:   string(f.Action),
		Variable: f.Variable,
		Depth:    f.Depth,
	}
}

// Result is the outcome of one scenario.
type Result struct {
	Name   string       `json:"name"`
	Pass   bool         `json:"pass"`
	Trace  []TraceEvent `json:"trace"`
	Faults []FaultEvent `json:"faults"`
	Errors []string     `json:"errors,omitempty"`
}

// NewResult returns a passing, empty result.
func NewResult(name string) *Result {
	return &Result{
		Name:   name,
		Pass:   true,
		Trace:  []TraceEvent{},
		Faults: []FaultEvent{},
		Errors: []string{},
	}
}

// AddError records a failed check.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// Snapshot renders the trace and faults as canonical JSON. Equal runs
// give byte-identical snapshots.
func (r *Result) Snapshot() ([]byte, error) {
	trace := make(ir.IRArray, len(r.Trace))
	for i, ev := range r.Trace {
		obj := ir.IRObject{
			"flow":   ir.IRString(ev.Flow),
			"seq":    ir.IRInt(ev.Seq),
			"depth":  ir.IRInt(ev.Depth),
			"action": ir.IRString(ev.Action),
			"input":  ev.Input,
			"output": ev.Output,
		}
		if ev.Rule != "" {
			obj["rule"] = ir.IRString(ev.Rule)
		}
		if ev.CauseSeq != 0 {
			obj["cause_seq"] = ir.IRInt(ev.CauseSeq)
		}
		trace[i] = obj
	}

	faults := make(ir.IRArray, len(r.Faults))
	for i, f := range r.Faults {
		obj := ir.IRObject{
			"flow":  ir.IRString(f.Flow),
			"code":  ir.IRString(f.Code),
			"depth": ir.IRInt(f.Depth),
		}
		if f.Rule != "" {
			obj["rule"] = ir.IRString(f.Rule)
		}
		if f.Action != "" {
			obj["action"] = ir.IRString(f.Action)
		}
		if f.Variable != "" {
			obj["variable"] = ir.IRString(f.Variable)
		}
		faults[i] = obj
	}

	data, err := ir.MarshalCanonical(ir.IRObject{
		"scenario": ir.IRString(r.Name),
		"trace":    trace,
		"faults":   faults,
	})
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

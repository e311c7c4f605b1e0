package engine

import (
	"context"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// cascade is the state of one stimulus' dispatch. It lives on the
// dispatching goroutine only.
type cascade struct {
	flow    string
	root    ir.ActionRecord
	records []ir.ActionRecord
	faults  []*Fault
	aborted bool

	// active is the depth of the invocation currently executing, used for
	// nested Handle calls made from inside a concept.
	active int
}

func newCascade(flow string) *cascade {
	return &cascade{flow: flow}
}

// eligible returns the records a non-trigger when pattern may match for a
// trigger: records of this cascade sequenced before it, newest first.
func (c *cascade) eligible(trigger ir.ActionRecord) []ir.ActionRecord {
	var out []ir.ActionRecord
	for i := len(c.records) - 1; i >= 0; i-- {
		if c.records[i].Seq < trigger.Seq {
			out = append(out, c.records[i])
		}
	}
	return out
}

func (c *cascade) outcome() *Outcome {
	return &Outcome{
		Flow:    c.flow,
		Output:  c.root.Output,
		Root:    c.root,
		Records: append([]ir.ActionRecord(nil), c.records...),
		Faults:  append([]*Fault(nil), c.faults...),
		Aborted: c.aborted,
	}
}

type cascadeKey struct{}

func withCascade(ctx context.Context, c *cascade) context.Context {
	return context.WithValue(ctx, cascadeKey{}, c)
}

func cascadeFrom(ctx context.Context) *cascade {
	c, _ := ctx.Value(cascadeKey{}).(*cascade)
	return c
}

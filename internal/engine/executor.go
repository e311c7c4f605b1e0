package engine

import (
	"context"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/frame"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

// notify evaluates every candidate rule for rec, in declaration order, and
// performs the resulting invocations depth-first. It returns early once the
// cascade has been aborted.
func (e *Engine) notify(ctx context.Context, c *cascade, rec ir.ActionRecord) {
	for _, r := range e.registry.Candidates(rec.Action) {
		if c.aborted {
			return
		}
		frames := matchWhen(r, rec, c)
		if len(frames) == 0 {
			continue
		}
		frames = e.executeWhere(ctx, c, r, rec, frames)
		for _, f := range frames {
			if c.aborted {
				return
			}
			e.fire(ctx, c, r, rec, f)
		}
	}
}

// fire applies the then clause of r for one frame. Templates run in
// declaration order and each invocation's own cascade completes before the
// next template is resolved. An unresolved variable or failed invocation
// abandons the remaining templates of this frame.
func (e *Engine) fire(ctx context.Context, c *cascade, r *rule.SyncRule, trigger ir.ActionRecord, f frame.Frame) {
	bindings := f.Object(r.Symbols())

	if e.cycles != nil {
		hash, err := ir.BindingHash(bindings)
		if err == nil {
			if e.cycles.WouldCycle(c.flow, r.ID(), hash) {
				fault := e.newFault(c, FaultCycleDetected, "rule would fire the same bindings twice in one cascade")
				fault.Rule = r.ID()
				fault.Depth = trigger.Depth
				fault.Trigger = trigger.ID
				e.raise(ctx, c, fault)
				return
			}
			e.cycles.Record(c.flow, r.ID(), hash)
		}
	}

	e.observers.firing(ctx, Firing{
		Rule:     r.ID(),
		Flow:     c.flow,
		Trigger:  trigger,
		Bindings: bindings,
	})

	for _, tpl := range r.Then {
		input, err := tpl.Resolve(f)
		if err != nil {
			e.raise(ctx, c, e.unresolvedFault(c, r, trigger, tpl.Action, err))
			return
		}

		depth := trigger.Depth + 1
		if depth > e.maxDepth {
			e.raise(ctx, c, e.depthFault(c, tpl.Action, depth, r.ID(), trigger.ID))
			return
		}

		child, err := e.perform(ctx, c, tpl.Action, input, depth, trigger.ID, r.ID())
		if err != nil {
			fault := e.actionFault(c, tpl.Action, depth, r.ID(), err)
			fault.Trigger = trigger.ID
			e.raise(ctx, c, fault)
			return
		}

		e.notify(ctx, c, child)
		if c.aborted {
			return
		}
	}
}

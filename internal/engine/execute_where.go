package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/frame"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

// executeWhere runs the where clause of r over frames, step by step in
// declaration order. Joins are inner joins: each result row that unifies
// with the frame yields one extended frame and zero rows drop it. Filters
// keep the frames for which their predicate holds.
//
// A frame whose step faults (unbound argument, unknown concept, failing
// query) is dropped after the fault is raised; the other frames continue.
func (e *Engine) executeWhere(ctx context.Context, c *cascade, r *rule.SyncRule, trigger ir.ActionRecord, frames frame.Set) frame.Set {
	for i, step := range r.Where {
		if len(frames) == 0 {
			return nil
		}
		switch s := step.(type) {
		case rule.Join:
			frames = e.executeJoin(ctx, c, r, trigger, s, frames)
		case rule.Predicate:
			frames = e.executeFilter(ctx, c, r, trigger, s, frames)
		default:
			f := e.newFault(c, FaultQueryFailed, fmt.Sprintf("unsupported where step %d (%T)", i, step))
			f.Rule = r.ID()
			f.Trigger = trigger.ID
			e.raise(ctx, c, f)
			return nil
		}
	}
	return frames
}

func (e *Engine) executeJoin(ctx context.Context, c *cascade, r *rule.SyncRule, trigger ir.ActionRecord, j rule.Join, frames frame.Set) frame.Set {
	var out frame.Set
	for _, f := range frames {
		args, err := j.ResolveArgs(f)
		if err != nil {
			e.raise(ctx, c, e.unresolvedFault(c, r, trigger, j.Query, err))
			continue
		}
		rows, err := e.query(ctx, j.Query, args)
		if err != nil {
			code := FaultQueryFailed
			if errors.Is(err, ErrUnknownConcept) {
				code = FaultUnknownConcept
			}
			fault := e.newFault(c, code, fmt.Sprintf("query %s failed", j.Query))
			fault.Rule = r.ID()
			fault.Action = j.Query
			fault.Depth = trigger.Depth
			fault.Trigger = trigger.ID
			fault.Err = err
			e.raise(ctx, c, fault)
			continue
		}
		out = append(out, j.Apply(rows, f)...)
	}
	return out
}

func (e *Engine) executeFilter(ctx context.Context, c *cascade, r *rule.SyncRule, trigger ir.ActionRecord, p rule.Predicate, frames frame.Set) frame.Set {
	return frames.Filter(func(f frame.Frame) bool {
		ok, err := rule.Eval(p, f)
		if err != nil {
			e.raise(ctx, c, e.unresolvedFault(c, r, trigger, "", err))
			return false
		}
		return ok
	})
}

func (e *Engine) query(ctx context.Context, q ir.ActionRef, args ir.IRObject) (rows []ir.IRObject, err error) {
	con, ok := e.concept(q.Concept())
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownConcept, q.Concept())
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("query %s panicked: %v", q, rec)
		}
	}()
	return con.Query(ctx, q.Name(), args)
}

func (e *Engine) unresolvedFault(c *cascade, r *rule.SyncRule, trigger ir.ActionRecord, action ir.ActionRef, err error) *Fault {
	f := e.newFault(c, FaultUnresolvedVariable, err.Error())
	var ue *rule.UnresolvedError
	if errors.As(err, &ue) {
		f.Variable = ue.Var
		f.Message = fmt.Sprintf("rule %s references unbound variable %q", r.ID(), ue.Var)
	} else {
		f.Code = FaultQueryFailed
	}
	f.Rule = r.ID()
	f.Action = action
	f.Depth = trigger.Depth
	f.Trigger = trigger.ID
	f.Err = err
	return f
}

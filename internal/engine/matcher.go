package engine

import (
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/frame"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

// matchWhen computes the initial frame set of r for a trigger record.
//
// For every when entry the trigger unifies with, the remaining entries are
// satisfied left to right, each by the most recent compatible record among
// those the cascade produced before the trigger. There is no backtracking:
// if the most recent compatible record for an entry leads to a dead end the
// attempt fails. Each successful attempt contributes one frame; identical
// frames are merged.
func matchWhen(r *rule.SyncRule, trigger ir.ActionRecord, c *cascade) frame.Set {
	var out frame.Set
	var earlier []ir.ActionRecord

	for i, p := range r.When {
		f, ok := p.Match(trigger, r.NewFrame())
		if !ok {
			continue
		}
		if len(r.When) > 1 && earlier == nil {
			earlier = c.eligible(trigger)
		}
		if f, ok = satisfyRest(r.When, i, f, earlier); ok {
			out = append(out, f)
		}
	}
	return out.Dedup()
}

func satisfyRest(patterns []rule.Pattern, skip int, f frame.Frame, records []ir.ActionRecord) (frame.Frame, bool) {
	for j, p := range patterns {
		if j == skip {
			continue
		}
		matched := false
		for _, rec := range records {
			if g, ok := p.Match(rec, f); ok {
				f = g
				matched = true
				break
			}
		}
		if !matched {
			return f, false
		}
	}
	return f, true
}

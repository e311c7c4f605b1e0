package harness

import (
	"context"
	"fmt"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/testutil"
)

// matchSubset reports whether actual contains expected: objects match when
// every expected field matches, arrays element-wise with equal length,
// scalars with ir.Equal.
func matchSubset(expected, actual ir.IRValue) bool {
	switch want := expected.(type) {
	case ir.IRObject:
		got, ok := actual.(ir.IRObject)
		if !ok {
			return false
		}
		for k, wv := range want {
			gv, ok := got[k]
			if !ok || !matchSubset(wv, gv) {
				return false
			}
		}
		return true
	case ir.IRArray:
		got, ok := actual.(ir.IRArray)
		if !ok || len(got) != len(want) {
			return false
		}
		for i := range want {
			if !matchSubset(want[i], got[i]) {
				return false
			}
		}
		return true
	default:
		return ir.Equal(expected, actual)
	}
}

func evaluate(ctx context.Context, p *testutil.Platform, r *Result, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(r.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(r.Trace, a.Actions)
	case AssertTraceCount:
		return assertTraceCount(r.Trace, a.Action, *a.Count)
	case AssertNoFaults:
		if len(r.Faults) > 0 {
			return fmt.Errorf("%d fault(s), first %s", len(r.Faults), r.Faults[0].Code)
		}
		return nil
	case AssertFault:
		for _, f := range r.Faults {
			if f.Code == a.Code && (a.Rule == "" || f.Rule == a.Rule) {
				return nil
			}
		}
		return fmt.Errorf("no %s fault (rule %q) among %d fault(s)", a.Code, a.Rule, len(r.Faults))
	case AssertFinalState:
		return assertFinalState(ctx, p, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	input, err := ir.ObjectFromGo(a.Input)
	if err != nil {
		return err
	}
	output, err := ir.ObjectFromGo(a.Output)
	if err != nil {
		return err
	}
	for _, ev := range trace {
		if ev.Action == a.Action && matchSubset(input, ev.Input) && matchSubset(output, ev.Output) {
			return nil
		}
	}
	return fmt.Errorf("no %s record with input %s and output %s", a.Action, render(input), render(output))
}

// assertTraceOrder checks that the first occurrences of actions appear in
// the given order. Other records may come in between.
func assertTraceOrder(trace []TraceEvent, actions []string) error {
	first := make(map[string]int)
	for i, ev := range trace {
		if _, seen := first[ev.Action]; !seen {
			first[ev.Action] = i
		}
	}
	for _, action := range actions {
		if _, ok := first[action]; !ok {
			return fmt.Errorf("%s does not occur", action)
		}
	}
	for i := 1; i < len(actions); i++ {
		prev, cur := actions[i-1], actions[i]
		if first[prev] >= first[cur] {
			return fmt.Errorf("%s (position %d) should come before %s (position %d)", prev, first[prev], cur, first[cur])
		}
	}
	return nil
}

func assertTraceCount(trace []TraceEvent, action string, want int) error {
	got := 0
	for _, ev := range trace {
		if ev.Action == action {
			got++
		}
	}
	if got != want {
		return fmt.Errorf("%s occurs %d time(s), want %d", action, got, want)
	}
	return nil
}

func assertFinalState(ctx context.Context, p *testutil.Platform, a Assertion) error {
	args, err := ir.ObjectFromGo(a.Args)
	if err != nil {
		return err
	}
	rows, err := p.Query(ctx, a.Query, args)
	if err != nil {
		return err
	}
	if a.Count != nil && len(rows) != *a.Count {
		return fmt.Errorf("%s returned %d row(s), want %d", a.Query, len(rows), *a.Count)
	}
	if a.Expect == nil {
		return nil
	}
	want, err := ir.ObjectFromGo(a.Expect)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if matchSubset(want, row) {
			return nil
		}
	}
	return fmt.Errorf("no %s row contains %s", a.Query, render(want))
}

package rule

import "fmt"

// Issue is a static defect found by Check.
type Issue struct {
	Rule    string
	Clause  string // "where[1]", "then[0]", ...
	Var     string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Rule, i.Clause, i.Message)
}

// Check follows variable flow through the rule: when patterns bind every
// variable they mention, joins require their arguments and bind their
// outputs, predicates and templates require what they read. It reports
// reads of variables that no earlier clause can bind. Such rules still
// build; at runtime they fault with an unresolved variable.
func Check(r *SyncRule) []Issue {
	bound := make(map[string]bool)
	for _, p := range r.When {
		p.in.walkVars(func(n string) { bound[n] = true })
		p.out.walkVars(func(n string) { bound[n] = true })
	}

	var issues []Issue
	require := func(clause string) func(string, bool) {
		return func(name string, required bool) {
			if required && !bound[name] {
				issues = append(issues, Issue{
					Rule:    r.ID(),
					Clause:  clause,
					Var:     name,
					Message: fmt.Sprintf("variable %q is read before any clause binds it", name),
				})
			}
		}
	}

	for i, s := range r.Where {
		clause := fmt.Sprintf("where[%d]", i)
		switch s := s.(type) {
		case Join:
			s.args.walkVars(func(n string) { require(clause)(n, true) })
			s.out.walkVars(func(n string) { bound[n] = true })
		case Predicate:
			s.vars(require(clause))
		}
	}
	for i, t := range r.Then {
		clause := fmt.Sprintf("then[%d]", i)
		t.in.walkVars(func(n string) { require(clause)(n, true) })
	}
	return issues
}

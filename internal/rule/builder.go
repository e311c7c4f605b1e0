package rule

import (
	"errors"
	"fmt"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// Builder assembles a SyncRule. Errors are collected and reported by Build.
//
//	rule.Sync("RenderOnStep").
//		When("Simulation.step", rule.Fields{"id": rule.V("scene")}, nil).
//		Then("Renderer.render", rule.Fields{"scene": rule.V("scene")}).
//		MustBuild()
type Builder struct {
	rule SyncRule
	errs []error
}

// Sync starts a rule named name.
func Sync(name string) *Builder {
	b := &Builder{rule: SyncRule{Name: name}}
	if name == "" {
		b.errs = append(b.errs, errors.New("rule name is required"))
	}
	return b
}

// When adds an action pattern. Either field map may be nil.
func (b *Builder) When(action string, input, output Fields) *Builder {
	ref, err := b.ref("when", action)
	if err == nil && ref.IsQuery() {
		b.errs = append(b.errs, fmt.Errorf("when: %s is a query and produces no records", ref))
	}
	b.rule.When = append(b.rule.When, Pattern{Action: ref, Input: input, Output: output})
	return b
}

// Query adds a join against a concept query.
func (b *Builder) Query(query string, args, out Fields) *Builder {
	ref, err := b.ref("where", query)
	if err == nil && !ref.IsQuery() {
		b.errs = append(b.errs, fmt.Errorf("where: %s is not a query (query names start with '_')", ref))
	}
	b.rule.Where = append(b.rule.Where, Join{Query: ref, Args: args, Out: out})
	return b
}

// Filter adds predicates to the where clause.
func (b *Builder) Filter(preds ...Predicate) *Builder {
	for _, p := range preds {
		b.rule.Where = append(b.rule.Where, p)
	}
	return b
}

// Where appends prebuilt steps.
func (b *Builder) Where(steps ...Step) *Builder {
	for _, s := range steps {
		if j, ok := s.(Join); ok {
			b.Query(string(j.Query), j.Args, j.Out)
			continue
		}
		b.rule.Where = append(b.rule.Where, s)
	}
	return b
}

// Then adds an action template.
func (b *Builder) Then(action string, input Fields) *Builder {
	ref, err := b.ref("then", action)
	if err == nil && ref.IsQuery() {
		b.errs = append(b.errs, fmt.Errorf("then: %s is a query and cannot be invoked", ref))
	}
	b.rule.Then = append(b.rule.Then, Template{Action: ref, Input: input})
	return b
}

// Build validates the structure and compiles the rule. Variables that are
// never bound are not an error here; see Check.
func (b *Builder) Build() (SyncRule, error) {
	errs := append([]error(nil), b.errs...)
	if len(b.rule.When) == 0 {
		errs = append(errs, errors.New("when: at least one action pattern is required"))
	}
	if len(b.rule.Then) == 0 {
		errs = append(errs, errors.New("then: at least one action template is required"))
	}
	if len(errs) > 0 {
		return SyncRule{}, fmt.Errorf("rule %q: %w", b.rule.Name, errors.Join(errs...))
	}

	r := SyncRule{
		Name:  b.rule.Name,
		When:  append([]Pattern(nil), b.rule.When...),
		Where: append([]Step(nil), b.rule.Where...),
		Then:  append([]Template(nil), b.rule.Then...),
	}
	r.compile()
	return r, nil
}

// MustBuild is like Build but panics on error. Use for statically declared
// rule sets.
func (b *Builder) MustBuild() SyncRule {
	r, err := b.Build()
	if err != nil {
		panic(err)
	}
	return r
}

func (b *Builder) ref(clause, s string) (ir.ActionRef, error) {
	ref, err := ir.ParseActionRef(s)
	if err != nil {
		err = fmt.Errorf("%s: %w", clause, err)
		b.errs = append(b.errs, err)
		return ir.ActionRef(s), err
	}
	return ref, nil
}

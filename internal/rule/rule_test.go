package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

func record(action string, input, output ir.IRObject) ir.ActionRecord {
	return ir.ActionRecord{Action: ir.ActionRef(action), Input: input, Output: output}
}

func loginRule(t *testing.T) SyncRule {
	t.Helper()
	r, err := Sync("LoginResponse").
		When("User.login", Fields{"username": V("name")}, Fields{"user": V("user"), "token": V("token")}).
		Then("API.response", Fields{"output": Obj{"user": V("user"), "token": V("token")}}).
		Build()
	require.NoError(t, err)
	return r
}

func TestBuildInternsVariablesInOrder(t *testing.T) {
	r := loginRule(t)

	assert.Equal(t, []string{"name", "token", "user"}, r.Symbols().Names(),
		"input fields first, then output fields, each sorted by key")
	assert.Equal(t, []ir.ActionRef{"User.login"}, r.Triggers())
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
		want    string
	}{
		{"no when", Sync("r").Then("A.b", nil), "at least one action pattern"},
		{"no then", Sync("r").When("A.b", nil, nil), "at least one action template"},
		{"bad ref", Sync("r").When("nodot", nil, nil).Then("A.b", nil), "invalid action reference"},
		{"query in when", Sync("r").When("A._q", nil, nil).Then("A.b", nil), "is a query"},
		{"action in where", Sync("r").When("A.b", nil, nil).Query("A.c", nil, nil).Then("A.b", nil), "not a query"},
		{"no name", Sync("").When("A.b", nil, nil).Then("A.b", nil), "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMustBuildPanics(t *testing.T) {
	assert.Panics(t, func() { Sync("r").MustBuild() })
}

func TestPatternMatchBindsVariables(t *testing.T) {
	r := loginRule(t)
	rec := record("User.login",
		ir.IRObject{"username": ir.IRString("alice"), "password": ir.IRString("pw")},
		ir.IRObject{"user": ir.IRString("u1"), "token": ir.IRString("t1")})

	f, ok := r.When[0].Match(rec, r.NewFrame())
	require.True(t, ok)
	assert.Equal(t, ir.IRObject{
		"name":  ir.IRString("alice"),
		"user":  ir.IRString("u1"),
		"token": ir.IRString("t1"),
	}, f.Object(r.Symbols()))
}

func TestPatternMatchRequiresFieldPresence(t *testing.T) {
	r := loginRule(t)
	rec := record("User.login",
		ir.IRObject{"username": ir.IRString("alice")},
		ir.ErrorOutput("Invalid credentials"))

	_, ok := r.When[0].Match(rec, r.NewFrame())
	assert.False(t, ok, "an error output has no user field")
}

func TestPatternMatchWrongAction(t *testing.T) {
	r := loginRule(t)
	_, ok := r.When[0].Match(record("User.logout", nil, nil), r.NewFrame())
	assert.False(t, ok)
}

func TestPatternMatchRepeatedVariableUnifies(t *testing.T) {
	r := Sync("Self").
		When("Session.create", Fields{"user": V("u"), "owner": V("u")}, nil).
		Then("A.b", Fields{"u": V("u")}).
		MustBuild()

	_, ok := r.When[0].Match(record("Session.create",
		ir.IRObject{"user": ir.IRString("a"), "owner": ir.IRString("a")}, nil), r.NewFrame())
	assert.True(t, ok)

	_, ok = r.When[0].Match(record("Session.create",
		ir.IRObject{"user": ir.IRString("a"), "owner": ir.IRString("b")}, nil), r.NewFrame())
	assert.False(t, ok, "same variable must take the same value")
}

func TestPatternMatchNestedAndLiterals(t *testing.T) {
	r := Sync("Nested").
		When("Project.create",
			Fields{"type": S("solar-system"), "config": Obj{"scale": V("scale")}, "tags": List{S("a"), V("t")}},
			nil).
		Then("A.b", Fields{"s": V("scale")}).
		MustBuild()

	in := ir.IRObject{
		"type":   ir.IRString("solar-system"),
		"config": ir.IRObject{"scale": ir.IRFloat(2), "extra": ir.IRBool(true)},
		"tags":   ir.IRArray{ir.IRString("a"), ir.IRString("b")},
	}
	f, ok := r.When[0].Match(record("Project.create", in, nil), r.NewFrame())
	require.True(t, ok)
	assert.Equal(t, ir.IRObject{"scale": ir.IRFloat(2), "t": ir.IRString("b")}, f.Object(r.Symbols()))

	in["type"] = ir.IRString("blank")
	_, ok = r.When[0].Match(record("Project.create", in, nil), r.NewFrame())
	assert.False(t, ok, "literal mismatch")
}

func TestTemplateResolve(t *testing.T) {
	r := loginRule(t)
	f, ok := r.When[0].Match(record("User.login",
		ir.IRObject{"username": ir.IRString("alice")},
		ir.IRObject{"user": ir.IRString("u1"), "token": ir.IRString("t1")}), r.NewFrame())
	require.True(t, ok)

	input, err := r.Then[0].Resolve(f)
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"output": ir.IRObject{"user": ir.IRString("u1"), "token": ir.IRString("t1")}}, input)
}

func TestTemplateResolveUnbound(t *testing.T) {
	r := Sync("Broken").
		When("A.x", nil, nil).
		Then("B.y", Fields{"id": V("missing")}).
		MustBuild()

	_, err := r.Then[0].Resolve(r.NewFrame())
	var unresolved *UnresolvedError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "missing", unresolved.Var)
}

func TestJoinApplyIsInnerJoin(t *testing.T) {
	r := Sync("Projects").
		When("User.login", nil, Fields{"user": V("user")}).
		Query("Project._getByUser", Fields{"user": V("user")}, Fields{"id": V("project")}).
		Then("Renderer.createScene", Fields{"id": V("project")}).
		MustBuild()

	f, ok := r.When[0].Match(record("User.login", nil, ir.IRObject{"user": ir.IRString("u1")}), r.NewFrame())
	require.True(t, ok)
	join := r.Where[0].(Join)

	args, err := join.ResolveArgs(f)
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"user": ir.IRString("u1")}, args)

	assert.Empty(t, join.Apply(nil, f), "zero rows drop the frame")

	rows := []ir.IRObject{{"id": ir.IRString("p1")}, {"id": ir.IRString("p2")}, {"name": ir.IRString("no id")}}
	out := join.Apply(rows, f)
	require.Len(t, out, 2)
	v, _ := out[1].Get(r.Symbols().Intern("project"))
	assert.Equal(t, ir.IRString("p2"), v)
}

func TestPredicates(t *testing.T) {
	r := Sync("Preds").
		When("Simulation.step", Fields{"id": V("id")}, Fields{"time": V("time"), "running": V("running")}).
		Filter(
			IsBound("time"),
			Eq(V("running"), B(true)),
			Neq(V("id"), S("paused")),
			Fn("positive", func(a ir.IRObject) bool {
				n, _ := ir.AsFloat(a["time"])
				return n > 0
			}, "time"),
		).
		Then("Renderer.render", Fields{"scene": V("id")}).
		MustBuild()

	eval := func(out ir.IRObject) (bool, error) {
		f, ok := r.When[0].Match(record("Simulation.step", ir.IRObject{"id": ir.IRString("main")}, out), r.NewFrame())
		require.True(t, ok)
		for _, s := range r.Where {
			ok, err := Eval(s.(Predicate), f)
			if err != nil || !ok {
				return ok, err
			}
		}
		return true, nil
	}

	ok, err := eval(ir.IRObject{"time": ir.IRFloat(1), "running": ir.IRBool(true)})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = eval(ir.IRObject{"time": ir.IRNull{}, "running": ir.IRBool(true)})
	require.NoError(t, err)
	assert.False(t, ok, "null is not bound")

	ok, err = eval(ir.IRObject{"time": ir.IRFloat(1), "running": ir.IRBool(false)})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPredicateUnboundIsError(t *testing.T) {
	r := Sync("P").
		When("A.x", nil, nil).
		Filter(All(Eq(V("nope"), S("x")))).
		Then("A.y", nil).
		MustBuild()

	_, err := Eval(r.Where[0].(Predicate), r.NewFrame())
	var unresolved *UnresolvedError
	require.ErrorAs(t, err, &unresolved)

	ok, err := Eval(IsBound("nope").compile(r.Symbols()), r.NewFrame())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheck(t *testing.T) {
	clean := Sync("Clean").
		When("User.login", nil, Fields{"user": V("user")}).
		Query("Project._getByUser", Fields{"user": V("user")}, Fields{"id": V("p")}).
		Filter(IsBound("later")).
		Then("A.b", Fields{"p": V("p")}).
		MustBuild()
	assert.Empty(t, Check(&clean))

	broken := Sync("Broken").
		When("User.login", nil, nil).
		Query("Project._getByUser", Fields{"user": V("user")}, Fields{"id": V("p")}).
		Then("A.b", Fields{"p": V("p"), "x": V("x")}).
		MustBuild()
	issues := Check(&broken)
	require.Len(t, issues, 2)
	assert.Equal(t, "where[0]", issues[0].Clause)
	assert.Equal(t, "user", issues[0].Var)
	assert.Equal(t, "then[0]", issues[1].Clause)
	assert.Equal(t, "x", issues[1].Var)
}

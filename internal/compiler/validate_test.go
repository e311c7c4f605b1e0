package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

func codes(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func validSpec() ir.ConceptSpec {
	return ir.ConceptSpec{
		Name:    "Simulation",
		Purpose: "Advances simulated time",
		State:   []ir.StateSpec{{Name: "Sim", Fields: map[string]string{"time": "float"}}},
		Actions: []ir.ActionSig{{
			Name:    "step",
			Args:    []ir.NamedArg{{Name: "id", Type: "string"}},
			Outputs: []ir.OutputCase{{Case: "Success", Fields: map[string]string{"time": "float"}}},
		}},
		Queries: []ir.QuerySig{{Name: "_getActive", Fields: map[string]string{"id": "string"}}},
	}
}

func TestValidateConceptSpec_Valid(t *testing.T) {
	spec := validSpec()
	assert.Empty(t, Validate(&spec))
	assert.Empty(t, Validate(spec))
}

func TestValidateConceptSpec_Errors(t *testing.T) {
	spec := ir.ConceptSpec{
		Name: "Broken",
		Actions: []ir.ActionSig{
			{Name: "go", Args: []ir.NamedArg{{Name: "n", Type: "decimal"}}},
			{Name: "go", Outputs: []ir.OutputCase{{Case: "Success"}}},
		},
		Queries: []ir.QuerySig{{Name: "_all"}, {Name: "_all"}},
	}

	errs := Validate(&spec)
	assert.ElementsMatch(t, []string{
		ErrConceptPurposeEmpty,
		ErrActionNoOutputs,
		ErrInvalidFieldType,
		ErrDuplicateName,
		ErrDuplicateName,
	}, codes(errs))
}

func TestValidateConceptSpec_NoActions(t *testing.T) {
	spec := ir.ConceptSpec{Name: "Empty", Purpose: "nothing"}
	assert.Equal(t, []string{ErrConceptNoActions}, codes(Validate(&spec)))
}

func TestValidate_UnsupportedType(t *testing.T) {
	errs := Validate(42)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedType, errs[0].Code)
}

func TestValidateSyncRule_Valid(t *testing.T) {
	r := rule.Sync("Step").
		When("Simulation.step", nil, rule.Fields{"id": rule.V("id")}).
		Query("Body._getByProject", rule.Fields{"project": rule.V("id")}, rule.Fields{"id": rule.V("body")}).
		Then("Renderer.render", rule.Fields{"body": rule.V("body")}).
		MustBuild()

	assert.Empty(t, Validate(&r))
}

func TestValidateSyncRule_UnboundVariable(t *testing.T) {
	r := rule.Sync("Leaky").
		When("Simulation.step", nil, nil).
		Filter(rule.Eq(rule.V("ghost"), rule.I(1))).
		Then("Renderer.render", rule.Fields{"scene": rule.V("missing")}).
		MustBuild()

	errs := Validate(r)
	require.Len(t, errs, 2)
	assert.Equal(t, ErrUndefinedBoundVariable, errs[0].Code)
	assert.Equal(t, "where[0]", errs[0].Field)
	assert.Equal(t, "then[0]", errs[1].Field)
}

func TestValidateSyncRule_Refs(t *testing.T) {
	r := rule.SyncRule{
		Name:  "Bad",
		When:  []rule.Pattern{{Action: "simulation.step"}},
		Where: []rule.Step{rule.Join{Query: "Body.getAll"}},
		Then:  []rule.Template{{Action: "Renderer"}},
	}

	assert.Equal(t, []string{
		ErrInvalidActionRef,
		ErrInvalidWhereClause,
		ErrInvalidThenClause,
	}, codes(Validate(&r)))
}

func TestValidateSyncRule_MissingClauses(t *testing.T) {
	r := rule.SyncRule{Name: "Empty"}
	assert.Equal(t, []string{ErrMissingSyncClause, ErrMissingSyncClause}, codes(Validate(&r)))
}

func TestValidateReferences(t *testing.T) {
	specs := []ir.ConceptSpec{validSpec()}
	rules := []rule.SyncRule{
		rule.Sync("Known").
			When("Simulation.step", nil, nil).
			Query("Simulation._getActive", nil, rule.Fields{"id": rule.V("id")}).
			Then("Simulation.step", rule.Fields{"id": rule.V("id")}).
			MustBuild(),
		rule.Sync("Unknown").
			When("Simulation.pause", nil, nil).
			Then("Renderer.render", nil).
			MustBuild(),
	}

	errs := ValidateReferences(specs, rules)
	require.Len(t, errs, 2)
	assert.Equal(t, ErrUnknownReference, errs[0].Code)
	assert.Equal(t, "Unknown.when[0]", errs[0].Field)
	assert.Equal(t, "Unknown.then[0]", errs[1].Field)
}

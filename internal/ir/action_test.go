package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionRef(t *testing.T) {
	ref, err := ParseActionRef("Project._getByUser")
	require.NoError(t, err)
	assert.Equal(t, "Project", ref.Concept())
	assert.Equal(t, "_getByUser", ref.Name())
	assert.True(t, ref.IsQuery())

	ref, err = ParseActionRef("User.login")
	require.NoError(t, err)
	assert.False(t, ref.IsQuery())

	for _, bad := range []string{"", "User", ".login", "User.", "A.b.c"} {
		_, err := ParseActionRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestActionSigValidate(t *testing.T) {
	sig := ActionSig{
		Name: "login",
		Args: []NamedArg{{Name: "username", Type: "string"}},
		Outputs: []OutputCase{
			{Case: "Success", Fields: map[string]string{"user": "string", "token": "string"}},
			{Case: "Error", Fields: map[string]string{"error": "string"}},
		},
	}
	assert.Empty(t, sig.Validate())
	assert.Equal(t, map[string]bool{"user": true, "token": true, "error": true}, sig.OutputFields())
}

func TestActionSigValidateCollectsAllErrors(t *testing.T) {
	sig := ActionSig{
		Name: "_bad",
		Args: []NamedArg{{Name: "n", Type: "decimal"}},
		Outputs: []OutputCase{
			{Case: "Success", Fields: map[string]string{"v": "blob"}},
			{Case: "Success"},
		},
	}

	errs := sig.Validate()
	require.Len(t, errs, 4)
	assert.Equal(t, "name", errs[0].Field)
	assert.Equal(t, "outputs[0].fields.v", errs[1].Field)
	assert.Equal(t, "outputs[1].case", errs[2].Field)
	assert.Equal(t, "args[0].type", errs[3].Field)
}

func TestQuerySigValidate(t *testing.T) {
	q := QuerySig{Name: "getById", Fields: map[string]string{"id": "string"}}
	errs := q.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "underscore")
}

func TestCheckType(t *testing.T) {
	assert.True(t, CheckType("number", IRInt(1)))
	assert.True(t, CheckType("float", IRInt(1)))
	assert.True(t, CheckType("any", IRNull{}))
	assert.False(t, CheckType("int", IRFloat(1.5)))
	assert.True(t, CheckType("object", IRObject{}))
}

func TestActionRecordIsError(t *testing.T) {
	ok := ActionRecord{Output: IRObject{"user": IRString("u1")}}
	bad := ActionRecord{Output: ErrorOutput("Invalid credentials")}

	assert.False(t, ok.IsError())
	assert.True(t, bad.IsError())
	assert.True(t, ok.IsRoot())
}

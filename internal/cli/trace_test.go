package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/store"
)

// recordGuestLogin runs a guest login with a trace log and returns the log
// path and the printed cascade.
func recordGuestLogin(t *testing.T) (string, CascadeView) {
	t.Helper()
	db := filepath.Join(t.TempDir(), "trace.db")
	out, err := execute(t, "invoke", "API.request", "--args", `{"method":"guest_login"}`, "--db", db, "--format", "json")
	require.NoError(t, err)
	view := decodeCascade(t, out)
	require.Len(t, view.Records, 4)
	return db, view
}

func TestTrace_ListFlows(t *testing.T) {
	db, view := recordGuestLogin(t)

	out, err := execute(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, view.Flow)
	assert.Contains(t, out, "API.request")
	assert.Contains(t, out, "records=4 errors=0 faults=0")

	out, err = execute(t, "trace", "--db", db, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data []store.FlowSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, view.Flow, resp.Data[0].Flow)
	assert.Equal(t, ir.ActionRef("API.request"), resp.Data[0].Root)
	assert.Equal(t, 4, resp.Data[0].Records)
}

func TestTrace_Flow(t *testing.T) {
	db, view := recordGuestLogin(t)

	out, err := execute(t, "trace", "--db", db, "--flow", view.Flow)
	require.NoError(t, err)
	assert.Contains(t, out, "Flow: "+view.Flow)
	assert.Contains(t, out, "[2] User.createGuest  <- auth.GuestLogin")
	assert.Contains(t, out, "[4] API.response  <- auth.GuestResponse")

	out, err = execute(t, "trace", "--db", db, "--flow", view.Flow, "--action", "Session.create", "--format", "json")
	require.NoError(t, err)
	filtered := decodeCascade(t, out)
	require.Len(t, filtered.Records, 1)
	assert.Equal(t, view.Records[2].ID, filtered.Records[0].ID)
	assert.Equal(t, view.Records[2].Input, filtered.Records[0].Input)
}

func TestTrace_Record(t *testing.T) {
	db, view := recordGuestLogin(t)
	root := view.Records[0]

	out, err := execute(t, "trace", "--db", db, "--record", root.ID, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data ProvenanceView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, root.ID, resp.Data.Record.ID)
	require.NotEmpty(t, resp.Data.Caused)
	assert.Equal(t, ir.ActionRef("User.createGuest"), resp.Data.Caused[0].Action)
	assert.Equal(t, "auth.GuestLogin", resp.Data.Caused[0].Rule)

	out, err = execute(t, "trace", "--db", db, "--record", view.Records[3].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "[4] API.response")
	assert.Contains(t, out, "(caused nothing)")
}

func TestTrace_StoredDepthFault(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"loop.cue": loopSpecs})
	db := filepath.Join(t.TempDir(), "trace.db")

	out, err := execute(t, "invoke", "Simulation.step",
		"--specs", dir, "--max-depth", "3", "--db", db, "--format", "json",
		"--args", `{"id":"main"}`,
		"--setup", `Simulation.create={"id":"main"}`,
	)
	require.Error(t, err)
	view := decodeCascade(t, out)
	require.True(t, view.Aborted)

	out, err = execute(t, "trace", "--db", db, "--flow", view.Flow)
	require.NoError(t, err)
	assert.Contains(t, out, "fault DEPTH_EXCEEDED")
	assert.Contains(t, out, "cascade aborted")
}

func TestTrace_EmptyLog(t *testing.T) {
	db := filepath.Join(t.TempDir(), "trace.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No flows recorded.")
}

func TestTrace_Errors(t *testing.T) {
	db, _ := recordGuestLogin(t)

	_, err := execute(t, "trace", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "trace", "--db", db, "--record", "no-such-record")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, "trace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

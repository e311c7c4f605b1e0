package concepts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// testClock is a settable wall clock.
type testClock struct{ t time.Time }

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testOptions(clock *testClock) Options {
	return buildOptions([]Option{
		WithIDs(Sequential()),
		WithNow(clock.now),
		WithPasswordCost(bcrypt.MinCost),
	})
}

func invoke(t *testing.T, c engine.Concept, action string, in ir.IRObject) ir.IRObject {
	t.Helper()
	out, err := c.Invoke(context.Background(), action, in)
	require.NoError(t, err)
	return out
}

func query(t *testing.T, c engine.Concept, name string, in ir.IRObject) []ir.IRObject {
	t.Helper()
	rows, err := c.Query(context.Background(), name, in)
	require.NoError(t, err)
	return rows
}

func requireError(t *testing.T, out ir.IRObject, msg string) {
	t.Helper()
	require.Equal(t, ir.IRString(msg), out[ir.ErrorField], "output: %v", out)
}

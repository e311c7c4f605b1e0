package concepts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

func TestSession_Lifecycle(t *testing.T) {
	clock := &testClock{t: epoch}
	s := newSession(testOptions(clock))

	out := invoke(t, s, "create", ir.IRObject{"user": str("u1"), "token": str("t1"), "duration": ir.IRInt(60)})
	assert.Equal(t, ir.IRObject{"session": str("session-1")}, out)

	out = invoke(t, s, "validate", ir.IRObject{"token": str("t1")})
	assert.Equal(t, ir.IRObject{"session": str("session-1"), "user": str("u1")}, out)

	clock.advance(30 * time.Second)
	invoke(t, s, "refresh", ir.IRObject{"token": str("t1"), "duration": ir.IRInt(60)})
	clock.advance(45 * time.Second)
	assert.NotContains(t, invoke(t, s, "validate", ir.IRObject{"token": str("t1")}), ir.ErrorField, "refreshed")

	invoke(t, s, "invalidate", ir.IRObject{"token": str("t1")})
	requireError(t, invoke(t, s, "validate", ir.IRObject{"token": str("t1")}), "Session is inactive")
	assert.Empty(t, query(t, s, "_getByUser", ir.IRObject{"user": str("u1")}))
}

func TestSession_Expiry(t *testing.T) {
	clock := &testClock{t: epoch}
	s := newSession(testOptions(clock))
	invoke(t, s, "create", ir.IRObject{"user": str("u1"), "token": str("t1"), "duration": ir.IRInt(10)})

	clock.advance(11 * time.Second)
	requireError(t, invoke(t, s, "validate", ir.IRObject{"token": str("t1")}), "Session has expired")

	rows := query(t, s, "_getByToken", ir.IRObject{"token": str("t1")})
	require.Len(t, rows, 1)
	assert.Equal(t, ir.IRBool(false), rows[0]["active"])
}

func TestSession_Errors(t *testing.T) {
	s := newSession(testOptions(&testClock{t: epoch}))

	requireError(t, invoke(t, s, "create", ir.IRObject{"user": str("u1"), "token": str("t1"), "duration": ir.IRInt(0)}), "Invalid session parameters")
	requireError(t, invoke(t, s, "validate", ir.IRObject{"token": str("nope")}), "Session not found")
	requireError(t, invoke(t, s, "invalidate", ir.IRObject{"token": str("nope")}), "Session not found")
	requireError(t, invoke(t, s, "refresh", ir.IRObject{"token": str("nope"), "duration": ir.IRInt(5)}), "Session not found")
}

func TestSession_Queries(t *testing.T) {
	s := newSession(testOptions(&testClock{t: epoch}))
	invoke(t, s, "create", ir.IRObject{"user": str("u1"), "token": str("t1"), "duration": ir.IRInt(60)})
	invoke(t, s, "create", ir.IRObject{"user": str("u1"), "token": str("t2"), "duration": ir.IRInt(60)})

	rows := query(t, s, "_getByUser", ir.IRObject{"user": str("u1")})
	require.Len(t, rows, 2)
	assert.Equal(t, str("t1"), rows[0]["token"])

	rows = query(t, s, "_getById", ir.IRObject{"id": str("session-2")})
	require.Len(t, rows, 1)
	assert.Equal(t, ir.IRInt(epoch.Add(time.Minute).UnixMilli()), rows[0]["expiresAt"])
}

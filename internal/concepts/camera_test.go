package concepts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

func vec(x, y, z float64) ir.IRObject {
	return ir.IRObject{"x": ir.IRFloat(x), "y": ir.IRFloat(y), "z": ir.IRFloat(z)}
}

func TestCamera_CreateDefaults(t *testing.T) {
	c := newCamera(testOptions(&testClock{t: epoch}))

	out := invoke(t, c, "create", ir.IRObject{"id": str("cam"), "scene": str("main")})
	assert.Equal(t, ir.IRObject{"camera": str("cam")}, out)
	requireError(t, invoke(t, c, "create", ir.IRObject{"id": str("cam"), "scene": str("main")}), "Camera already exists")
	requireError(t, invoke(t, c, "create", ir.IRObject{"id": str("other")}), "Camera id and scene are required")

	rows := query(t, c, "_getById", ir.IRObject{"id": str("cam")})
	require.Len(t, rows, 1)
	assert.Equal(t, vec(0, 100, 100), rows[0]["position"])
	assert.Equal(t, vec(0, 0, 0), rows[0]["target"])
	assert.Equal(t, ir.IRFloat(75), rows[0]["fov"])
	assert.Equal(t, str("perspective"), rows[0]["type"])
	assert.Len(t, query(t, c, "_getByScene", ir.IRObject{"scene": str("main")}), 1)
}

func TestCamera_ZoomClamps(t *testing.T) {
	c := newCamera(testOptions(&testClock{t: epoch}))
	invoke(t, c, "create", ir.IRObject{"id": str("cam"), "scene": str("main")})

	invoke(t, c, "zoom", ir.IRObject{"id": str("cam"), "factor": ir.IRInt(10)})
	rows := query(t, c, "_getById", ir.IRObject{"id": str("cam")})
	assert.Equal(t, ir.IRFloat(120), rows[0]["fov"])

	invoke(t, c, "zoom", ir.IRObject{"id": str("cam"), "factor": ir.IRFloat(0.01)})
	rows = query(t, c, "_getById", ir.IRObject{"id": str("cam")})
	assert.Equal(t, ir.IRFloat(10), rows[0]["fov"])

	requireError(t, invoke(t, c, "zoom", ir.IRObject{"id": str("cam"), "factor": ir.IRInt(0)}), "Zoom factor must be positive")
	requireError(t, invoke(t, c, "zoom", ir.IRObject{"id": str("nope"), "factor": ir.IRInt(2)}), "Camera not found")
}

func TestCamera_FollowAndTrack(t *testing.T) {
	c := newCamera(testOptions(&testClock{t: epoch}))
	invoke(t, c, "create", ir.IRObject{"id": str("cam"), "scene": str("main")})

	requireError(t, invoke(t, c, "follow", ir.IRObject{"id": str("cam"), "bodyId": str("earth")}), "Follow distance must be positive")
	invoke(t, c, "follow", ir.IRObject{"id": str("cam"), "bodyId": str("earth"), "distance": ir.IRFloat(0)})
	assert.Empty(t, query(t, c, "_getFollowing", ir.IRObject{"bodyId": str("earth")}))

	invoke(t, c, "follow", ir.IRObject{"id": str("cam"), "bodyId": str("earth"), "distance": ir.IRInt(10)})
	require.Len(t, query(t, c, "_getFollowing", ir.IRObject{"bodyId": str("earth")}), 1)
	assert.Empty(t, query(t, c, "_getFollowing", ir.IRObject{"bodyId": str("mars")}))

	invoke(t, c, "track", ir.IRObject{"id": str("cam"), "target": vec(20, 0, 0)})
	rows := query(t, c, "_getById", ir.IRObject{"id": str("cam")})
	assert.Equal(t, vec(20, 0, 0), rows[0]["target"])
	pos := rows[0]["position"].(ir.IRObject)
	assert.Equal(t, ir.IRFloat(20), pos["x"])
	assert.InDelta(t, 7.0710678, float64(pos["y"].(ir.IRFloat)), 1e-6)
	assert.InDelta(t, 7.0710678, float64(pos["z"].(ir.IRFloat)), 1e-6)

	invoke(t, c, "follow", ir.IRObject{"id": str("cam"), "bodyId": str("")})
	assert.Empty(t, query(t, c, "_getFollowing", ir.IRObject{"bodyId": str("earth")}))
}

func TestCamera_OrbitAroundTarget(t *testing.T) {
	c := newCamera(testOptions(&testClock{t: epoch}))
	invoke(t, c, "create", ir.IRObject{"id": str("cam"), "scene": str("main")})
	invoke(t, c, "setTarget", ir.IRObject{"id": str("cam"), "target": vec(1, 2, 3)})

	invoke(t, c, "orbit", ir.IRObject{"id": str("cam"), "distance": ir.IRInt(5), "angle": ir.IRInt(0)})
	rows := query(t, c, "_getById", ir.IRObject{"id": str("cam")})
	assert.Equal(t, vec(6, 2, 3), rows[0]["position"])

	invoke(t, c, "setPosition", ir.IRObject{"id": str("cam"), "position": vec(0, 0, 50)})
	rows = query(t, c, "_getById", ir.IRObject{"id": str("cam")})
	assert.Equal(t, vec(0, 0, 50), rows[0]["position"])
}

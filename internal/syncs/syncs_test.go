package syncs

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/concepts"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

type platform struct {
	t       *testing.T
	engine  *engine.Engine
	handles map[string]*engine.Handle
}

func newPlatform(t *testing.T) *platform {
	t.Helper()
	e := engine.New(
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithFlowGenerator(engine.NewSequenceGenerator("flow")),
	)
	handles, err := e.Instrument(concepts.New(
		concepts.WithIDs(concepts.Sequential()),
		concepts.WithPasswordCost(bcrypt.MinCost),
	))
	require.NoError(t, err)
	require.NoError(t, Register(e))
	return &platform{t: t, engine: e, handles: handles}
}

func (p *platform) invoke(action string, in ir.IRObject) *engine.Outcome {
	p.t.Helper()
	ref, err := ir.ParseActionRef(action)
	require.NoError(p.t, err)
	out, err := p.handles[ref.Concept()].Dispatch(context.Background(), ref.Name(), in)
	require.NoError(p.t, err)
	require.Empty(p.t, out.Faults)
	return out
}

// call sends an API request and returns the cascade and the response.
func (p *platform) call(in ir.IRObject) (*engine.Outcome, ir.IRValue) {
	p.t.Helper()
	out := p.invoke("API.request", in)
	rows, err := p.handles["API"].Query(context.Background(), "_get", ir.IRObject{"request": out.Output["request"]})
	require.NoError(p.t, err)
	require.Len(p.t, rows, 1)
	return out, rows[0]["output"]
}

func str(s string) ir.IRString { return ir.IRString(s) }

func TestRuleSets_StaticallyClean(t *testing.T) {
	seen := make(map[string]bool)
	for _, set := range All() {
		for i := range set.Rules {
			r := &set.Rules[i]
			assert.Empty(t, rule.Check(r), "%s.%s", set.Name, r.Name)
			assert.False(t, seen[r.Name], "duplicate rule name %s", r.Name)
			seen[r.Name] = true
		}
	}
}

func TestListProjectsStartPrecedesListProjects(t *testing.T) {
	var names []string
	for _, r := range Projects() {
		names = append(names, r.Name)
	}
	start, list := -1, -1
	for i, n := range names {
		switch n {
		case "ListProjectsStart":
			start = i
		case "ListProjects":
			list = i
		}
	}
	require.NotEqual(t, -1, start)
	assert.Less(t, start, list)
}

func TestRegister_SealedAfterDispatch(t *testing.T) {
	p := newPlatform(t)
	p.call(ir.IRObject{"method": str("list_bodies")})
	assert.ErrorIs(t, Register(p.engine), rule.ErrSealed)
}

// =============================================================================
// auth
// =============================================================================

func registerAlice(p *platform) {
	p.t.Helper()
	_, resp := p.call(ir.IRObject{
		"method": str("register"), "username": str("alice"), "email": str("alice@example.com"), "password": str("secret1"),
	})
	require.Equal(p.t, ir.IRObject{"success": ir.IRBool(true), "user": str("user-1")}, resp)
}

func TestAuth_LoginSuccess(t *testing.T) {
	p := newPlatform(t)
	registerAlice(p)

	out, resp := p.call(ir.IRObject{"method": str("login"), "username": str("alice"), "password": str("secret1")})

	assert.Equal(t, []ir.ActionRef{"API.request", "User.login", "Session.create", "API.response"}, out.Actions())
	assert.Equal(t, ir.IRObject{
		"success": ir.IRBool(true),
		"user":    str("user-1"),
		"token":   str("token-1"),
		"session": str("session-1"),
	}, resp)
}

func TestAuth_LoginError(t *testing.T) {
	p := newPlatform(t)
	registerAlice(p)

	out, resp := p.call(ir.IRObject{"method": str("login"), "username": str("alice"), "password": str("nope")})

	assert.Equal(t, []ir.ActionRef{"API.request", "User.login", "API.response"}, out.Actions())
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(false), "error": str("Invalid username or password")}, resp)
	assert.Zero(t, out.Count("Session.create"))
}

func TestAuth_RegisterError(t *testing.T) {
	p := newPlatform(t)
	_, resp := p.call(ir.IRObject{
		"method": str("register"), "username": str("al"), "email": str("a@b"), "password": str("secret1"),
	})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(false), "error": str("Username must be at least 3 characters long")}, resp)
}

func TestAuth_GuestThenLogout(t *testing.T) {
	p := newPlatform(t)

	_, resp := p.call(ir.IRObject{"method": str("guest_login")})
	guest, ok := resp.(ir.IRObject)
	require.True(t, ok)
	assert.Equal(t, str("guest-1"), guest["user"])
	assert.Equal(t, str("session-1"), guest["session"])

	_, resp = p.call(ir.IRObject{"method": str("logout"), "token": guest["token"]})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(true), "session": str("session-1")}, resp)

	_, resp = p.call(ir.IRObject{"method": str("logout"), "token": str("bogus")})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(false), "error": str("Session not found")}, resp)
}

// =============================================================================
// projects
// =============================================================================

func createProject(p *platform, owner, name, kind string) string {
	p.t.Helper()
	_, resp := p.call(ir.IRObject{
		"method": str("create_project"), "userId": str(owner), "name": str(name), "type": str(kind),
	})
	obj, ok := resp.(ir.IRObject)
	require.True(p.t, ok)
	require.Equal(p.t, ir.IRBool(true), obj["success"], "response: %v", obj)
	return obj.String("project")
}

func TestProjects_ListJoinCardinality(t *testing.T) {
	p := newPlatform(t)
	createProject(p, "user-1", "Solar", "notes")
	createProject(p, "user-1", "Binary", "notes")

	out, resp := p.call(ir.IRObject{"method": str("list_projects"), "userId": str("guest-1")})
	assert.Zero(t, out.Count("API.append"), "no rows, no firing")
	assert.Equal(t, ir.IRObject{"items": ir.IRArray{}}, resp)

	out, resp = p.call(ir.IRObject{"method": str("list_projects"), "userId": str("user-1")})
	assert.Equal(t, 2, out.Count("API.append"))
	assert.Equal(t, ir.IRObject{"items": ir.IRArray{
		ir.IRObject{"id": str("project-1"), "name": str("Solar"), "type": str("notes")},
		ir.IRObject{"id": str("project-2"), "name": str("Binary"), "type": str("notes")},
	}}, resp)
}

func TestProjects_SolarSystemBootstrap(t *testing.T) {
	p := newPlatform(t)
	p.invoke("CelestialBody.create", ir.IRObject{"id": str("sun"), "name": str("Sun"), "type": str("star")})

	id := createProject(p, "user-1", "My System", SolarSystemType)

	sims, err := p.handles["Simulation"].Query(context.Background(), "_getById", ir.IRObject{"id": str(id)})
	require.NoError(t, err)
	assert.Len(t, sims, 1)

	objects, err := p.handles["Renderer"].Query(context.Background(), "_getObjects", ir.IRObject{"scene": str(id)})
	require.NoError(t, err)
	require.Len(t, objects, 1, "existing bodies populate the new scene")
	assert.Equal(t, str("sun"), objects[0]["bodyId"])

	cameras, err := p.handles["Camera"].Query(context.Background(), "_getByScene", ir.IRObject{"scene": str(id)})
	require.NoError(t, err)
	require.Len(t, cameras, 1)
	assert.Equal(t, str(id), cameras[0]["id"])
}

func TestProjects_GetSimulationTypes(t *testing.T) {
	p := newPlatform(t)
	p.invoke("SimulationType.register", ir.IRObject{"id": str("solar-system"), "name": str("Solar System"), "category": str("astronomy")})
	p.invoke("SimulationType.register", ir.IRObject{"id": str("pendulum"), "name": str("Pendulum"), "category": str("mechanics")})
	p.invoke("SimulationType.deactivate", ir.IRObject{"id": str("pendulum")})

	solar := ir.IRObject{"id": str("solar-system"), "name": str("Solar System"), "category": str("astronomy"), "description": str("")}

	_, resp := p.call(ir.IRObject{"method": str("get_simulation_types")})
	assert.Equal(t, ir.IRObject{"items": ir.IRArray{solar}}, resp)

	_, resp = p.call(ir.IRObject{"method": str("get_simulation_types_by_category"), "category": str("astronomy")})
	assert.Equal(t, ir.IRObject{"items": ir.IRArray{solar}}, resp)

	out, resp := p.call(ir.IRObject{"method": str("get_simulation_types_by_category"), "category": str("mechanics")})
	assert.Zero(t, out.Count("API.append"), "inactive types are filtered out")
	assert.Equal(t, ir.IRObject{"items": ir.IRArray{}}, resp)
}

func TestProjects_DeleteOwnership(t *testing.T) {
	p := newPlatform(t)
	id := createProject(p, "user-1", "Solar", "notes")

	_, resp := p.call(ir.IRObject{"method": str("delete_project"), "id": str(id), "userId": str("user-2")})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(false), "error": str("Permission denied")}, resp)

	_, resp = p.call(ir.IRObject{"method": str("delete_project"), "id": str(id), "userId": str("user-1")})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(true), "project": str(id)}, resp)
}

func TestProjects_PublishAndGet(t *testing.T) {
	p := newPlatform(t)
	id := createProject(p, "user-1", "Solar", "notes")
	p.call(ir.IRObject{"method": str("publish_project"), "id": str(id)})

	_, resp := p.call(ir.IRObject{"method": str("list_public_projects")})
	assert.Equal(t, ir.IRObject{"items": ir.IRArray{
		ir.IRObject{"id": str(id), "name": str("Solar"), "type": str("notes")},
	}}, resp)

	_, resp = p.call(ir.IRObject{"method": str("get_project"), "id": str(id)})
	obj, ok := resp.(ir.IRObject)
	require.True(t, ok)
	assert.Equal(t, ir.IRBool(true), obj["isPublic"])
	assert.Equal(t, str("user-1"), obj["userId"])

	_, resp = p.call(ir.IRObject{"method": str("get_project"), "id": str("missing")})
	assert.Equal(t, ir.IRNull{}, resp, "no row, no response")
}

// =============================================================================
// solar
// =============================================================================

func TestSolar_RenderOnStep(t *testing.T) {
	p := newPlatform(t)
	p.invoke("Simulation.create", ir.IRObject{"id": str("main")})
	p.invoke("Renderer.createScene", ir.IRObject{"id": str("main")})

	out := p.invoke("Simulation.step", ir.IRObject{"id": str("main")})
	require.Equal(t, 1, out.Count("Renderer.render"))
	render := out.Records[len(out.Records)-1]
	assert.Equal(t, ir.ActionRef("Renderer.render"), render.Action)
	assert.Equal(t, ir.IRObject{"scene": str("main")}, render.Input)
	assert.Equal(t, "solar.RenderOnStep", render.Rule)

	out = p.invoke("Simulation.pause", ir.IRObject{"id": str("main")})
	assert.Zero(t, out.Count("Renderer.render"))
}

func TestSolar_OrbitUpdatesRendererBeforeRender(t *testing.T) {
	p := newPlatform(t)
	p.invoke("Simulation.create", ir.IRObject{"id": str("main")})
	p.invoke("Renderer.createScene", ir.IRObject{"id": str("main")})
	p.invoke("CelestialBody.create", ir.IRObject{"id": str("sun"), "name": str("Sun"), "type": str("star")})
	p.invoke("CelestialBody.create", ir.IRObject{
		"id": str("earth"), "name": str("Earth"), "type": str("planet"), "parent": str("sun"),
		"distance": ir.IRInt(10), "orbitalPeriod": ir.IRInt(4),
	})

	out := p.invoke("Simulation.step", ir.IRObject{"id": str("main")})
	assert.Equal(t, []ir.ActionRef{
		"Simulation.step", "CelestialBody.orbit", "Renderer.updateBody", "Renderer.render",
	}, out.Actions())
	assert.Equal(t, 2, out.MaxDepth())
}

func TestSolar_ControlEndpoints(t *testing.T) {
	p := newPlatform(t)
	p.invoke("Simulation.create", ir.IRObject{"id": str("main")})

	_, resp := p.call(ir.IRObject{"method": str("set_speed"), "id": str("main"), "speed": ir.IRInt(3)})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(true), "id": str("main"), "method": str("set_speed")}, resp)

	_, resp = p.call(ir.IRObject{"method": str("step_simulation"), "id": str("main")})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(true), "id": str("main"), "time": ir.IRFloat(3)}, resp)

	p.call(ir.IRObject{"method": str("pause_simulation"), "id": str("main")})
	_, resp = p.call(ir.IRObject{"method": str("get_simulation"), "id": str("main")})
	assert.Equal(t, ir.IRObject{
		"id": str("main"), "time": ir.IRFloat(3), "speed": ir.IRFloat(3), "paused": ir.IRBool(true),
	}, resp)

	_, resp = p.call(ir.IRObject{"method": str("reset_simulation"), "id": str("nope")})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(false), "error": str("Simulation not found")}, resp)
}

func TestSolar_CreateAndListBodies(t *testing.T) {
	p := newPlatform(t)
	_, resp := p.call(ir.IRObject{
		"method": str("create_body"), "name": str("Mars"), "type": str("planet"), "parent": str("sun"),
		"distance": ir.IRFloat(15.2), "orbitalPeriod": ir.IRInt(687),
	})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(true), "body": str("body-1")}, resp)

	_, resp = p.call(ir.IRObject{"method": str("list_bodies")})
	obj, ok := resp.(ir.IRObject)
	require.True(t, ok)
	items, ok := obj["items"].(ir.IRArray)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, str("Mars"), items[0].(ir.IRObject)["name"])
}

func TestSolar_CameraFollowsOrbitingBody(t *testing.T) {
	p := newPlatform(t)
	p.invoke("Simulation.create", ir.IRObject{"id": str("main")})
	p.invoke("Renderer.createScene", ir.IRObject{"id": str("main")})
	p.invoke("Camera.create", ir.IRObject{"id": str("cam"), "scene": str("main")})
	p.invoke("CelestialBody.create", ir.IRObject{"id": str("sun"), "name": str("Sun"), "type": str("star")})
	p.invoke("CelestialBody.create", ir.IRObject{
		"id": str("earth"), "name": str("Earth"), "type": str("planet"), "parent": str("sun"),
		"distance": ir.IRInt(10), "orbitalPeriod": ir.IRInt(4),
	})

	_, resp := p.call(ir.IRObject{"method": str("follow_body"), "camera": str("cam"), "body": str("earth"), "distance": ir.IRInt(20)})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(true), "camera": str("cam"), "method": str("follow_body")}, resp)

	out := p.invoke("Simulation.step", ir.IRObject{"id": str("main")})
	assert.Equal(t, []ir.ActionRef{
		"Simulation.step", "CelestialBody.orbit", "Renderer.updateBody", "Camera.track", "Renderer.render",
	}, out.Actions())

	earth, err := p.handles["CelestialBody"].Query(context.Background(), "_getById", ir.IRObject{"id": str("earth")})
	require.NoError(t, err)
	require.Len(t, earth, 1)

	_, resp = p.call(ir.IRObject{"method": str("get_camera"), "camera": str("cam")})
	cam, ok := resp.(ir.IRObject)
	require.True(t, ok)
	assert.Equal(t, earth[0]["position"], cam["target"])
	assert.Equal(t, str("earth"), cam["follows"])
}

func TestSolar_CameraEndpointErrors(t *testing.T) {
	p := newPlatform(t)
	p.invoke("Camera.create", ir.IRObject{"id": str("cam"), "scene": str("main")})

	_, resp := p.call(ir.IRObject{"method": str("follow_body"), "camera": str("nope"), "body": str("earth"), "distance": ir.IRInt(20)})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(false), "error": str("Camera not found")}, resp)

	_, resp = p.call(ir.IRObject{"method": str("zoom_camera"), "camera": str("cam"), "factor": ir.IRInt(0)})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(false), "error": str("Zoom factor must be positive")}, resp)

	_, resp = p.call(ir.IRObject{"method": str("zoom_camera"), "camera": str("cam"), "factor": ir.IRFloat(0.5)})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(true), "camera": str("cam"), "method": str("zoom_camera")}, resp)
}

// =============================================================================
// storage
// =============================================================================

func TestStorage_SaveShareLoad(t *testing.T) {
	p := newPlatform(t)
	data := ir.IRObject{"time": ir.IRInt(5)}

	_, resp := p.call(ir.IRObject{"method": str("save_simulation"), "userId": str("user-1"), "name": str("Orbit"), "data": data})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(true), "storage": str("saved-1")}, resp)

	_, resp = p.call(ir.IRObject{"method": str("save_simulation"), "userId": str("user-1"), "name": str(""), "data": data})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(false), "error": str("Simulation name cannot be empty")}, resp)

	_, resp = p.call(ir.IRObject{"method": str("load_simulation"), "storage": str("saved-1"), "userId": str("user-2")})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(false), "error": str("Access denied")}, resp)

	_, resp = p.call(ir.IRObject{"method": str("share_simulation"), "storage": str("saved-1"), "userId": str("user-2")})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(false), "error": str("You can only share your own simulations")}, resp)

	_, resp = p.call(ir.IRObject{"method": str("share_simulation"), "storage": str("saved-1"), "userId": str("user-1")})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(true), "storage": str("saved-1")}, resp)

	_, resp = p.call(ir.IRObject{"method": str("load_simulation"), "storage": str("saved-1"), "userId": str("user-2")})
	assert.Equal(t, ir.IRObject{
		"success": ir.IRBool(true), "storage": str("saved-1"), "name": str("Orbit"),
		"description": str(""), "data": data, "isPublic": ir.IRBool(true),
	}, resp)

	_, resp = p.call(ir.IRObject{"method": str("list_public_simulations")})
	obj, ok := resp.(ir.IRObject)
	require.True(t, ok)
	items, ok := obj["items"].(ir.IRArray)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, str("saved-1"), items[0].(ir.IRObject)["id"])

	_, resp = p.call(ir.IRObject{"method": str("list_saved_simulations"), "userId": str("user-2")})
	assert.Equal(t, ir.IRObject{"items": ir.IRArray{}}, resp)
}

func TestStorage_SnapshotSimulation(t *testing.T) {
	p := newPlatform(t)
	p.invoke("Simulation.create", ir.IRObject{"id": str("main")})
	p.invoke("Simulation.step", ir.IRObject{"id": str("main")})

	_, resp := p.call(ir.IRObject{"method": str("snapshot_simulation"), "id": str("main"), "userId": str("user-1"), "name": str("t1")})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(true), "storage": str("saved-1")}, resp)

	_, resp = p.call(ir.IRObject{"method": str("load_simulation"), "storage": str("saved-1"), "userId": str("user-1")})
	obj, ok := resp.(ir.IRObject)
	require.True(t, ok)
	assert.Equal(t, ir.IRObject{
		"simulation": str("main"), "time": ir.IRFloat(1), "speed": ir.IRFloat(1), "paused": ir.IRBool(false),
	}, obj["data"])

	out, resp := p.call(ir.IRObject{"method": str("snapshot_simulation"), "id": str("nope"), "userId": str("user-1"), "name": str("t2")})
	assert.Zero(t, out.Count("SimulationStorage.save"))
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(false), "error": str("Simulation not found")}, resp)

	_, resp = p.call(ir.IRObject{"method": str("delete_saved_simulation"), "storage": str("saved-1"), "userId": str("user-1")})
	assert.Equal(t, ir.IRObject{"success": ir.IRBool(true), "storage": str("saved-1")}, resp)

	_, resp = p.call(ir.IRObject{"method": str("list_saved_simulations"), "userId": str("user-1")})
	assert.Equal(t, ir.IRObject{"items": ir.IRArray{}}, resp)
}

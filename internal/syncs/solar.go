package syncs

import (
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

// Solar returns the solar system rule set.
func Solar() []rule.SyncRule {
	rules := []rule.SyncRule{
		// Orbit runs before render so a frame shows the new positions.
		rule.Sync("OrbitOnStep").
			When("Simulation.step", nil, rule.Fields{"time": v("time")}).
			Query("CelestialBody._getAll", nil, rule.Fields{"id": v("body"), "parent": v("parent")}).
			Filter(rule.Neq(v("parent"), s(""))).
			Then("CelestialBody.orbit", rule.Fields{"id": v("body"), "time": v("time")}).
			MustBuild(),

		rule.Sync("SyncRendererPosition").
			When("CelestialBody.orbit", nil, rule.Fields{"id": v("body"), "position": v("position")}).
			Query("Renderer._getBodyObjects", rule.Fields{"bodyId": v("body")}, rule.Fields{"scene": v("scene")}).
			Then("Renderer.updateBody", rule.Fields{"scene": v("scene"), "bodyId": v("body"), "position": v("position")}).
			MustBuild(),

		rule.Sync("FollowOnOrbit").
			When("CelestialBody.orbit", nil, rule.Fields{"id": v("body"), "position": v("position")}).
			Query("Camera._getFollowing", rule.Fields{"bodyId": v("body")}, rule.Fields{"id": v("camera")}).
			Then("Camera.track", rule.Fields{"id": v("camera"), "target": v("position")}).
			MustBuild(),

		rule.Sync("RenderOnStep").
			When("Simulation.step", rule.Fields{"id": v("scene")}, nil).
			Then("Renderer.render", rule.Fields{"scene": v("scene")}).
			MustBuild(),

		rule.Sync("AddBodyToScenes").
			When("CelestialBody.create", nil, rule.Fields{"id": v("body")}).
			Query("Renderer._getScenes", nil, rule.Fields{"id": v("scene")}).
			Then("Renderer.addBody", rule.Fields{"scene": v("scene"), "bodyId": v("body"), "mesh": s("sphere")}).
			MustBuild(),

		rule.Sync("PopulateScene").
			When("Renderer.createScene", nil, rule.Fields{"scene": v("scene")}).
			Query("CelestialBody._getAll", nil, rule.Fields{"id": v("body")}).
			Then("Renderer.addBody", rule.Fields{"scene": v("scene"), "bodyId": v("body"), "mesh": s("sphere")}).
			MustBuild(),

		request(rule.Sync("CreateBody"), "create_body", rule.Fields{
			"name": v("name"), "type": v("type"), "parent": v("parent"),
			"distance": v("distance"), "orbitalPeriod": v("period"),
		}).
			Then("CelestialBody.create", rule.Fields{
				"name": v("name"), "type": v("type"), "parent": v("parent"),
				"distance": v("distance"), "orbitalPeriod": v("period"),
			}).
			MustBuild(),

		respond(
			request(rule.Sync("CreateBodyResponse"), "create_body", nil).
				When("CelestialBody.create", nil, rule.Fields{"id": v("body")}),
			rule.Obj{"success": rule.B(true), "body": v("body")},
		).MustBuild(),

		failWith(
			request(rule.Sync("CreateBodyError"), "create_body", nil).
				When("CelestialBody.create", nil, rule.Fields{"error": v("error")}),
		).MustBuild(),

		respond(
			request(rule.Sync("ListBodiesStart"), "list_bodies", nil),
			rule.Obj{"items": rule.List{}},
		).MustBuild(),

		request(rule.Sync("ListBodies"), "list_bodies", nil).
			Query("CelestialBody._getAll", nil, rule.Fields{"id": v("body"), "name": v("name"), "type": v("type"), "position": v("position")}).
			Then("API.append", rule.Fields{"request": v("request"), "item": rule.Obj{
				"id": v("body"), "name": v("name"), "type": v("type"), "position": v("position"),
			}}).
			MustBuild(),

		request(rule.Sync("StepSimulation"), "step_simulation", rule.Fields{"id": v("sim")}).
			Then("Simulation.step", rule.Fields{"id": v("sim")}).
			MustBuild(),

		respond(
			request(rule.Sync("StepSimulationResponse"), "step_simulation", nil).
				When("Simulation.step", nil, rule.Fields{"id": v("sim"), "time": v("time")}),
			rule.Obj{"success": rule.B(true), "id": v("sim"), "time": v("time")},
		).MustBuild(),

		failWith(
			request(rule.Sync("StepSimulationError"), "step_simulation", nil).
				When("Simulation.step", nil, rule.Fields{"error": v("error")}),
		).MustBuild(),

		request(rule.Sync("GetSimulation"), "get_simulation", rule.Fields{"id": v("sim")}).
			Query("Simulation._getById", rule.Fields{"id": v("sim")}, rule.Fields{
				"time": v("time"), "speed": v("speed"), "paused": v("paused"),
			}).
			Then("API.response", rule.Fields{"request": v("request"), "output": rule.Obj{
				"id": v("sim"), "time": v("time"), "speed": v("speed"), "paused": v("paused"),
			}}).
			MustBuild(),
	}
	rules = append(rules, control("PauseSimulation", "pause_simulation", "Simulation.pause", nil)...)
	rules = append(rules, control("ResumeSimulation", "resume_simulation", "Simulation.resume", nil)...)
	rules = append(rules, control("ResetSimulation", "reset_simulation", "Simulation.reset", nil)...)
	rules = append(rules, control("SetSimulationSpeed", "set_speed", "Simulation.setSpeed", rule.Fields{"speed": v("speed")})...)

	rules = append(rules, cameraControl("FollowBody", "follow_body", "Camera.follow",
		rule.Fields{"body": v("body"), "distance": v("distance")},
		rule.Fields{"bodyId": v("body"), "distance": v("distance")})...)
	rules = append(rules, cameraControl("ZoomCamera", "zoom_camera", "Camera.zoom",
		rule.Fields{"factor": v("factor")},
		rule.Fields{"factor": v("factor")})...)
	return append(rules,
		request(rule.Sync("GetCamera"), "get_camera", rule.Fields{"camera": v("camera")}).
			Query("Camera._getById", rule.Fields{"id": v("camera")}, rule.Fields{
				"scene": v("scene"), "position": v("position"), "target": v("target"), "fov": v("fov"), "follows": v("follows"),
			}).
			Then("API.response", rule.Fields{"request": v("request"), "output": rule.Obj{
				"camera": v("camera"), "scene": v("scene"), "position": v("position"), "target": v("target"),
				"fov": v("fov"), "follows": v("follows"),
			}}).
			MustBuild(),
	)
}

// control maps a request method onto a simulation action: one rule invokes
// it, two more answer with its success or its error.
func control(name, method, action string, extra rule.Fields) []rule.SyncRule {
	in := rule.Fields{"id": v("sim")}
	for k, t := range extra {
		in[k] = t
	}
	return []rule.SyncRule{
		request(rule.Sync(name), method, in).
			Then(action, in).
			MustBuild(),

		respond(
			request(rule.Sync(name+"Response"), method, nil).
				When(action, nil, rule.Fields{"id": v("sim")}),
			rule.Obj{"success": rule.B(true), "id": v("sim"), "method": s(method)},
		).MustBuild(),

		failWith(
			request(rule.Sync(name+"Error"), method, nil).
				When(action, nil, rule.Fields{"error": v("error")}),
		).MustBuild(),
	}
}

// cameraControl is control for camera actions: the request names the camera
// and its remaining fields map onto the action's arguments.
func cameraControl(name, method, action string, fields, args rule.Fields) []rule.SyncRule {
	in := rule.Fields{"camera": v("camera")}
	for k, t := range fields {
		in[k] = t
	}
	call := rule.Fields{"id": v("camera")}
	for k, t := range args {
		call[k] = t
	}
	return []rule.SyncRule{
		request(rule.Sync(name), method, in).
			Then(action, call).
			MustBuild(),

		respond(
			request(rule.Sync(name+"Response"), method, nil).
				When(action, nil, rule.Fields{"camera": v("camera")}),
			rule.Obj{"success": rule.B(true), "camera": v("camera"), "method": s(method)},
		).MustBuild(),

		failWith(
			request(rule.Sync(name+"Error"), method, nil).
				When(action, nil, rule.Fields{"error": v("error")}),
		).MustBuild(),
	}
}

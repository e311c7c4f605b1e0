package syncs

import (
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

var savedRow = rule.Fields{"id": v("storage"), "name": v("name"), "isPublic": v("public"), "updatedAt": v("updated")}

var savedItem = rule.Obj{"id": v("storage"), "name": v("name"), "isPublic": v("public"), "updatedAt": v("updated")}

// Storage returns the saved simulation rule set.
func Storage() []rule.SyncRule {
	rules := []rule.SyncRule{
		request(rule.Sync("SaveSimulation"), "save_simulation", rule.Fields{
			"userId": v("user"), "name": v("name"), "data": v("data"),
		}).
			Then("SimulationStorage.save", rule.Fields{"userId": v("user"), "name": v("name"), "data": v("data")}).
			MustBuild(),

		// SnapshotSimulationStart answers first so a missing simulation, which
		// produces no query row and no save, still gets a response.
		respond(
			request(rule.Sync("SnapshotSimulationStart"), "snapshot_simulation", nil),
			rule.Obj{"success": rule.B(false), "error": s("Simulation not found")},
		).MustBuild(),

		request(rule.Sync("SnapshotSimulation"), "snapshot_simulation", rule.Fields{
			"id": v("sim"), "userId": v("user"), "name": v("name"),
		}).
			Query("Simulation._getById", rule.Fields{"id": v("sim")}, rule.Fields{
				"time": v("time"), "speed": v("speed"), "paused": v("paused"),
			}).
			Then("SimulationStorage.save", rule.Fields{"userId": v("user"), "name": v("name"), "data": rule.Obj{
				"simulation": v("sim"), "time": v("time"), "speed": v("speed"), "paused": v("paused"),
			}}).
			MustBuild(),

		request(rule.Sync("LoadSimulation"), "load_simulation", rule.Fields{"storage": v("storage"), "userId": v("user")}).
			Then("SimulationStorage.load", rule.Fields{"id": v("storage"), "userId": v("user")}).
			MustBuild(),

		respond(
			request(rule.Sync("LoadSimulationResponse"), "load_simulation", nil).
				When("SimulationStorage.load", nil, rule.Fields{
					"storage": v("storage"), "name": v("name"), "description": v("description"),
					"data": v("data"), "isPublic": v("public"),
				}),
			rule.Obj{
				"success": rule.B(true), "storage": v("storage"), "name": v("name"),
				"description": v("description"), "data": v("data"), "isPublic": v("public"),
			},
		).MustBuild(),

		failWith(
			request(rule.Sync("LoadSimulationError"), "load_simulation", nil).
				When("SimulationStorage.load", nil, rule.Fields{"error": v("error")}),
		).MustBuild(),

		request(rule.Sync("ShareSimulation"), "share_simulation", rule.Fields{"storage": v("storage"), "userId": v("user")}).
			Then("SimulationStorage.share", rule.Fields{"id": v("storage"), "userId": v("user"), "isPublic": rule.B(true)}).
			MustBuild(),

		request(rule.Sync("DeleteSavedSimulation"), "delete_saved_simulation", rule.Fields{"storage": v("storage"), "userId": v("user")}).
			Then("SimulationStorage.delete", rule.Fields{"id": v("storage"), "userId": v("user")}).
			MustBuild(),

		respond(
			request(rule.Sync("ListSavedSimulationsStart"), "list_saved_simulations", rule.Fields{"userId": v("user")}),
			rule.Obj{"items": rule.List{}},
		).MustBuild(),

		request(rule.Sync("ListSavedSimulations"), "list_saved_simulations", rule.Fields{"userId": v("user")}).
			Query("SimulationStorage._getByUser", rule.Fields{"userId": v("user")}, savedRow).
			Then("API.append", rule.Fields{"request": v("request"), "item": savedItem}).
			MustBuild(),

		respond(
			request(rule.Sync("ListPublicSimulationsStart"), "list_public_simulations", nil),
			rule.Obj{"items": rule.List{}},
		).MustBuild(),

		request(rule.Sync("ListPublicSimulations"), "list_public_simulations", nil).
			Query("SimulationStorage._getPublic", nil, savedRow).
			Then("API.append", rule.Fields{"request": v("request"), "item": savedItem}).
			MustBuild(),
	}
	rules = append(rules, stored("SaveSimulation", "save_simulation", "SimulationStorage.save")...)
	rules = append(rules, stored("SnapshotSimulation", "snapshot_simulation", "SimulationStorage.save")...)
	rules = append(rules, stored("ShareSimulation", "share_simulation", "SimulationStorage.share")...)
	return append(rules, stored("DeleteSavedSimulation", "delete_saved_simulation", "SimulationStorage.delete")...)
}

// stored answers method with the storage id of action, or with its error.
func stored(name, method, action string) []rule.SyncRule {
	return []rule.SyncRule{
		respond(
			request(rule.Sync(name+"Response"), method, nil).
				When(action, nil, rule.Fields{"storage": v("storage")}),
			rule.Obj{"success": rule.B(true), "storage": v("storage")},
		).MustBuild(),

		failWith(
			request(rule.Sync(name+"Error"), method, nil).
				When(action, nil, rule.Fields{"error": v("error")}),
		).MustBuild(),
	}
}

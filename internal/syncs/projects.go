package syncs

import (
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

// SolarSystemType is the project type that bootstraps a simulation and a
// scene sharing the project's id.
const SolarSystemType = "solar-system"

// projectItem is the list entry appended for every project row.
var projectItem = rule.Obj{"id": v("project"), "name": v("name"), "type": v("type")}

var projectRow = rule.Fields{"id": v("project"), "name": v("name"), "type": v("type")}

var simTypeRow = rule.Fields{
	"id": v("simType"), "name": v("name"), "category": v("category"), "description": v("description"), "isActive": v("active"),
}

var simTypeItem = rule.Obj{"id": v("simType"), "name": v("name"), "category": v("category"), "description": v("description")}

// Projects returns the project management rule set.
func Projects() []rule.SyncRule {
	return []rule.SyncRule{
		request(rule.Sync("CreateProject"), "create_project", rule.Fields{
			"userId": v("user"), "name": v("name"), "type": v("type"),
		}).
			Then("Project.create", rule.Fields{"userId": v("user"), "name": v("name"), "type": v("type")}).
			MustBuild(),

		rule.Sync("BootstrapSolarSystem").
			When("Project.create", rule.Fields{"type": s(SolarSystemType)}, rule.Fields{"project": v("project")}).
			Then("Simulation.create", rule.Fields{"id": v("project")}).
			Then("Renderer.createScene", rule.Fields{"id": v("project")}).
			Then("Camera.create", rule.Fields{"id": v("project"), "scene": v("project")}).
			MustBuild(),

		respond(
			request(rule.Sync("CreateProjectResponse"), "create_project", nil).
				When("Project.create", nil, rule.Fields{"project": v("project")}),
			rule.Obj{"success": rule.B(true), "project": v("project")},
		).MustBuild(),

		failWith(
			request(rule.Sync("CreateProjectError"), "create_project", nil).
				When("Project.create", nil, rule.Fields{"error": v("error")}),
		).MustBuild(),

		// ListProjectsStart must precede ListProjects: the empty response is
		// in place before the first row is appended, and a user without
		// projects still gets an answer.
		respond(
			request(rule.Sync("ListProjectsStart"), "list_projects", rule.Fields{"userId": v("user")}),
			rule.Obj{"items": rule.List{}},
		).MustBuild(),

		request(rule.Sync("ListProjects"), "list_projects", rule.Fields{"userId": v("user")}).
			Query("Project._getByUser", rule.Fields{"userId": v("user")}, projectRow).
			Then("API.append", rule.Fields{"request": v("request"), "item": projectItem}).
			MustBuild(),

		respond(
			request(rule.Sync("ListPublicStart"), "list_public_projects", nil),
			rule.Obj{"items": rule.List{}},
		).MustBuild(),

		request(rule.Sync("ListPublic"), "list_public_projects", nil).
			Query("Project._getPublic", nil, projectRow).
			Then("API.append", rule.Fields{"request": v("request"), "item": projectItem}).
			MustBuild(),

		respond(
			request(rule.Sync("GetSimulationTypesStart"), "get_simulation_types", nil),
			rule.Obj{"items": rule.List{}},
		).MustBuild(),

		request(rule.Sync("GetSimulationTypes"), "get_simulation_types", nil).
			Query("SimulationType._getActive", nil, simTypeRow).
			Then("API.append", rule.Fields{"request": v("request"), "item": simTypeItem}).
			MustBuild(),

		respond(
			request(rule.Sync("GetSimulationTypesByCategoryStart"), "get_simulation_types_by_category", rule.Fields{"category": v("category")}),
			rule.Obj{"items": rule.List{}},
		).MustBuild(),

		request(rule.Sync("GetSimulationTypesByCategory"), "get_simulation_types_by_category", rule.Fields{"category": v("category")}).
			Query("SimulationType._getByCategory", rule.Fields{"category": v("category")}, simTypeRow).
			Filter(rule.Eq(v("active"), rule.B(true))).
			Then("API.append", rule.Fields{"request": v("request"), "item": simTypeItem}).
			MustBuild(),

		request(rule.Sync("GetProject"), "get_project", rule.Fields{"id": v("project")}).
			Query("Project._getById", rule.Fields{"id": v("project")}, rule.Fields{
				"name": v("name"), "type": v("type"), "userId": v("user"), "isPublic": v("public"), "config": v("config"),
			}).
			Then("API.response", rule.Fields{"request": v("request"), "output": rule.Obj{
				"id": v("project"), "name": v("name"), "type": v("type"), "userId": v("user"),
				"isPublic": v("public"), "config": v("config"),
			}}).
			MustBuild(),

		request(rule.Sync("UpdateProject"), "update_project", rule.Fields{"id": v("project"), "name": v("name")}).
			Then("Project.update", rule.Fields{"id": v("project"), "name": v("name")}).
			MustBuild(),

		respond(
			request(rule.Sync("UpdateProjectResponse"), "update_project", nil).
				When("Project.update", nil, rule.Fields{"project": v("project")}),
			rule.Obj{"success": rule.B(true), "project": v("project")},
		).MustBuild(),

		failWith(
			request(rule.Sync("UpdateProjectError"), "update_project", nil).
				When("Project.update", nil, rule.Fields{"error": v("error")}),
		).MustBuild(),

		request(rule.Sync("DeleteProject"), "delete_project", rule.Fields{"id": v("project"), "userId": v("user")}).
			Then("Project.delete", rule.Fields{"id": v("project"), "userId": v("user")}).
			MustBuild(),

		respond(
			request(rule.Sync("DeleteProjectResponse"), "delete_project", nil).
				When("Project.delete", nil, rule.Fields{"project": v("project")}),
			rule.Obj{"success": rule.B(true), "project": v("project")},
		).MustBuild(),

		failWith(
			request(rule.Sync("DeleteProjectError"), "delete_project", nil).
				When("Project.delete", nil, rule.Fields{"error": v("error")}),
		).MustBuild(),

		request(rule.Sync("PublishProject"), "publish_project", rule.Fields{"id": v("project")}).
			Then("Project.setPublic", rule.Fields{"id": v("project"), "isPublic": rule.B(true)}).
			MustBuild(),

		respond(
			request(rule.Sync("PublishProjectResponse"), "publish_project", nil).
				When("Project.setPublic", nil, rule.Fields{"project": v("project")}),
			rule.Obj{"success": rule.B(true), "project": v("project")},
		).MustBuild(),

		failWith(
			request(rule.Sync("PublishProjectError"), "publish_project", nil).
				When("Project.setPublic", nil, rule.Fields{"error": v("error")}),
		).MustBuild(),
	}
}

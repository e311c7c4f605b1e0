// Package syncs declares the rule sets that compose the demo concepts into
// the simulation platform.
//
//   - auth: registration, login with session creation, guest login, logout
//   - projects: project CRUD over the API concept, solar-system project
//     bootstrap and the simulation type catalog
//   - solar: orbit and render on every simulation step, renderer and
//     camera upkeep, and the simulation and camera control endpoints
//   - storage: saving, snapshotting, loading and sharing simulations
//
// Requests arrive as API.request records whose input carries a method
// field; every endpoint ends in an API.response (or a series of API.append
// calls) for the same request.
package syncs

import (
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/rule"
)

// Set is a named rule collection.
type Set struct {
	Name  string
	Rules []rule.SyncRule
}

// All returns the demo rule sets in registration order.
func All() []Set {
	return []Set{
		{Name: "auth", Rules: Auth()},
		{Name: "projects", Rules: Projects()},
		{Name: "solar", Rules: Solar()},
		{Name: "storage", Rules: Storage()},
	}
}

// Register adds every demo rule set to e.
func Register(e *engine.Engine) error {
	for _, set := range All() {
		if err := e.Register(set.Name, set.Rules...); err != nil {
			return err
		}
	}
	return nil
}

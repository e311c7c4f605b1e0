// Package concepts holds the demo concepts of the simulation platform:
// API, User, Session, Project, SimulationType, SimulationStorage,
// Simulation, CelestialBody, Renderer and Camera.
//
// Each concept is an independent, in-memory state machine. Concepts never
// call one another; the rule sets in package syncs compose them. Actions
// report business failures as an output carrying an "error" field and
// return a Go error only for malformed input.
package concepts

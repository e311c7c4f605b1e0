package concepts

import (
	"strings"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// planet rows: name, distance (scene units), orbital period (days), radius,
// color.
var planets = []struct {
	name     string
	distance float64
	period   float64
	radius   float64
	color    string
}{
	{"Mercury", 10, 88, 0.38, "#8c7853"},
	{"Venus", 15, 224.7, 0.95, "#ffc649"},
	{"Earth", 20, 365.2, 1, "#6b93d6"},
	{"Mars", 25, 687, 0.53, "#c1440e"},
	{"Jupiter", 40, 4331, 11.2, "#d8ca9d"},
	{"Saturn", 55, 10747, 9.45, "#fad5a5"},
	{"Uranus", 70, 30589, 4, "#4fd0e7"},
	{"Neptune", 85, 59800, 3.88, "#4b70dd"},
}

// SolarSystem returns CelestialBody.create inputs for the sun and the eight
// planets, sun first. Ids are the lower-cased names.
func SolarSystem() []ir.IRObject {
	out := []ir.IRObject{ir.Obj(
		ir.O("id", str("sun")),
		ir.O("name", str("Sun")),
		ir.O("type", str("star")),
		ir.O("radius", ir.IRFloat(5)),
		ir.O("color", str("#ffd700")),
	)}
	for _, p := range planets {
		out = append(out, ir.Obj(
			ir.O("id", str(strings.ToLower(p.name))),
			ir.O("name", str(p.name)),
			ir.O("type", str("planet")),
			ir.O("parent", str("sun")),
			ir.O("distance", ir.IRFloat(p.distance)),
			ir.O("orbitalPeriod", ir.IRFloat(p.period)),
			ir.O("radius", ir.IRFloat(p.radius)),
			ir.O("color", str(p.color)),
		))
	}
	return out
}

// SimulationTypes returns SimulationType.register inputs for the built-in
// catalog.
func SimulationTypes() []ir.IRObject {
	return []ir.IRObject{
		ir.Obj(
			ir.O("id", str("solar-system")),
			ir.O("name", str("Solar System")),
			ir.O("description", str("Planets orbiting the sun")),
			ir.O("category", str("astronomy")),
			ir.O("icon", str("planet")),
			ir.O("defaultConfig", ir.Obj(
				ir.O("speed", ir.IRFloat(1)),
				ir.O("showOrbits", ir.IRBool(true)),
			)),
		),
	}
}

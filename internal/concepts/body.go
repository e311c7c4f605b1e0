package concepts

import (
	"context"
	"math"
	"sync"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// CelestialBody holds the bodies of a planetary system. Bodies with a
// parent move on circular orbits around the origin of that parent's frame.
type CelestialBody struct {
	methods
	mu     sync.Mutex
	ids    IDFunc
	bodies map[string]*body
	order  []string
}

// Vector3 is a position or velocity.
type Vector3 struct {
	X float64 `mapstructure:"x"`
	Y float64 `mapstructure:"y"`
	Z float64 `mapstructure:"z"`
}

func (v Vector3) object() ir.IRObject {
	return ir.Obj(
		ir.O("x", ir.IRFloat(v.X)),
		ir.O("y", ir.IRFloat(v.Y)),
		ir.O("z", ir.IRFloat(v.Z)),
	)
}

type body struct {
	ID             string  `mapstructure:"id"`
	Name           string  `mapstructure:"name"`
	Type           string  `mapstructure:"type"`
	Mass           float64 `mapstructure:"mass"`
	Radius         float64 `mapstructure:"radius"`
	Distance       float64 `mapstructure:"distance"`
	OrbitalPeriod  float64 `mapstructure:"orbitalPeriod"`
	RotationPeriod float64 `mapstructure:"rotationPeriod"`
	Color          string  `mapstructure:"color"`
	Parent         string  `mapstructure:"parent"`
	Position       Vector3 `mapstructure:"position"`
	Velocity       Vector3 `mapstructure:"velocity"`
}

func newCelestialBody(o Options) *CelestialBody {
	c := &CelestialBody{
		methods: newMethods(),
		ids:     o.IDs,
		bodies:  make(map[string]*body),
	}
	c.actions["create"] = c.create
	c.actions["orbit"] = c.orbit
	c.actions["updatePosition"] = c.updatePosition
	c.queries["_getById"] = c.getByID
	c.queries["_getAll"] = c.filter(func(*body, ir.IRObject) bool { return true })
	c.queries["_getByType"] = c.filter(func(b *body, in ir.IRObject) bool {
		return b.Type == in.String("type")
	})
	c.queries["_getChildren"] = c.filter(func(b *body, in ir.IRObject) bool {
		return b.Parent == in.String("parent")
	})
	return c
}

// create{id?, name, type, mass, radius, distance, orbitalPeriod, ...} -> {id} | {error}
func (c *CelestialBody) create(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	var b body
	if err := decode(in, &b); err != nil {
		return nil, err
	}
	if b.Name == "" {
		return fail("Body name is required")
	}
	b.Position, b.Velocity = Vector3{}, Vector3{}

	c.mu.Lock()
	defer c.mu.Unlock()
	if b.ID == "" {
		b.ID = c.ids("body")
	}
	if _, exists := c.bodies[b.ID]; exists {
		return fail("Body already exists")
	}
	c.bodies[b.ID] = &b
	c.order = append(c.order, b.ID)
	return reply(ir.O("id", str(b.ID)))
}

// orbit{id, time} -> {id, position} | {error}
//
// Places the body on its circular orbit at the given time. Bodies without
// a parent or orbital period stay where they are.
func (c *CelestialBody) orbit(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	var args struct {
		ID   string  `mapstructure:"id"`
		Time float64 `mapstructure:"time"`
	}
	if err := decode(in, &args); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	b, exists := c.bodies[args.ID]
	if !exists {
		return fail("Body not found")
	}
	if b.Parent != "" && b.OrbitalPeriod > 0 {
		angle := 2 * math.Pi * args.Time / b.OrbitalPeriod
		sin, cos := math.Sincos(angle)
		b.Position = Vector3{X: b.Distance * cos, Z: b.Distance * sin}
		speed := 2 * math.Pi * b.Distance / b.OrbitalPeriod
		b.Velocity = Vector3{X: -speed * sin, Z: speed * cos}
	}
	return reply(ir.O("id", str(b.ID)), ir.O("position", b.Position.object()))
}

// updatePosition{id, position} -> {id, position} | {error}
func (c *CelestialBody) updatePosition(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	var args struct {
		ID       string  `mapstructure:"id"`
		Position Vector3 `mapstructure:"position"`
	}
	if err := decode(in, &args); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	b, exists := c.bodies[args.ID]
	if !exists {
		return fail("Body not found")
	}
	b.Position = args.Position
	return reply(ir.O("id", str(b.ID)), ir.O("position", b.Position.object()))
}

func (c *CelestialBody) getByID(_ context.Context, in ir.IRObject) ([]ir.IRObject, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, exists := c.bodies[in.String("id")]; exists {
		return []ir.IRObject{b.row()}, nil
	}
	return nil, nil
}

func (c *CelestialBody) filter(keep func(*body, ir.IRObject) bool) queryFunc {
	return func(_ context.Context, in ir.IRObject) ([]ir.IRObject, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		var rows []ir.IRObject
		for _, id := range c.order {
			if b := c.bodies[id]; keep(b, in) {
				rows = append(rows, b.row())
			}
		}
		return rows, nil
	}
}

func (b *body) row() ir.IRObject {
	return ir.Obj(
		ir.O("id", str(b.ID)),
		ir.O("name", str(b.Name)),
		ir.O("type", str(b.Type)),
		ir.O("mass", ir.IRFloat(b.Mass)),
		ir.O("radius", ir.IRFloat(b.Radius)),
		ir.O("distance", ir.IRFloat(b.Distance)),
		ir.O("orbitalPeriod", ir.IRFloat(b.OrbitalPeriod)),
		ir.O("rotationPeriod", ir.IRFloat(b.RotationPeriod)),
		ir.O("color", str(b.Color)),
		ir.O("parent", str(b.Parent)),
		ir.O("position", b.Position.object()),
		ir.O("velocity", b.Velocity.object()),
	)
}

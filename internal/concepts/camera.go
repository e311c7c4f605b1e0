package concepts

import (
	"context"
	"math"
	"sync"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

const (
	minFOV = 10
	maxFOV = 120
)

// Camera holds the viewpoints of each scene. A camera may follow a body: it
// keeps its distance and re-aims whenever it is tracked to a new position.
type Camera struct {
	methods
	mu      sync.Mutex
	cameras map[string]*camera
	order   []string
}

type camera struct {
	ID       string  `mapstructure:"id"`
	Scene    string  `mapstructure:"scene"`
	Position Vector3 `mapstructure:"position"`
	Target   Vector3 `mapstructure:"target"`
	FOV      float64 `mapstructure:"fov"`
	Near     float64 `mapstructure:"near"`
	Far      float64 `mapstructure:"far"`
	Type     string  `mapstructure:"type"`
	follows  string
	distance float64
}

func newCamera(Options) *Camera {
	c := &Camera{
		methods: newMethods(),
		cameras: make(map[string]*camera),
	}
	c.actions["create"] = c.create
	c.actions["setPosition"] = c.setPosition
	c.actions["setTarget"] = c.setTarget
	c.actions["follow"] = c.follow
	c.actions["track"] = c.track
	c.actions["orbit"] = c.orbit
	c.actions["zoom"] = c.zoom
	c.queries["_getById"] = c.where(func(cam *camera, in ir.IRObject) bool {
		return cam.ID == in.String("id")
	})
	c.queries["_getByScene"] = c.where(func(cam *camera, in ir.IRObject) bool {
		return cam.Scene == in.String("scene")
	})
	c.queries["_getFollowing"] = c.where(func(cam *camera, in ir.IRObject) bool {
		return cam.follows != "" && cam.follows == in.String("bodyId")
	})
	return c
}

// create{id, scene, position?, target?, fov?, near?, far?, type?} -> {camera} | {error}
func (c *Camera) create(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	cam := &camera{
		Position: Vector3{Y: 100, Z: 100},
		FOV:      75,
		Near:     0.1,
		Far:      1000,
		Type:     "perspective",
	}
	if err := decode(in, cam); err != nil {
		return nil, err
	}
	if cam.ID == "" || cam.Scene == "" {
		return fail("Camera id and scene are required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.cameras[cam.ID]; exists {
		return fail("Camera already exists")
	}
	c.cameras[cam.ID] = cam
	c.order = append(c.order, cam.ID)
	return reply(ir.O("camera", str(cam.ID)))
}

type cameraArgs struct {
	ID       string  `mapstructure:"id"`
	BodyID   string  `mapstructure:"bodyId"`
	Position Vector3 `mapstructure:"position"`
	Target   Vector3 `mapstructure:"target"`
	Distance float64 `mapstructure:"distance"`
	Angle    float64 `mapstructure:"angle"`
	Factor   float64 `mapstructure:"factor"`
}

// update decodes in and applies fn to the addressed camera under the lock.
func (c *Camera) update(in ir.IRObject, fn func(*camera, cameraArgs) string) (ir.IRObject, error) {
	var args cameraArgs
	if err := decode(in, &args); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	cam, exists := c.cameras[args.ID]
	if !exists {
		return fail("Camera not found")
	}
	if msg := fn(cam, args); msg != "" {
		return fail(msg)
	}
	return reply(ir.O("camera", str(cam.ID)))
}

// setPosition{id, position} -> {camera} | {error}
func (c *Camera) setPosition(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	return c.update(in, func(cam *camera, args cameraArgs) string {
		cam.Position = args.Position
		return ""
	})
}

// setTarget{id, target} -> {camera} | {error}
func (c *Camera) setTarget(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	return c.update(in, func(cam *camera, args cameraArgs) string {
		cam.Target = args.Target
		return ""
	})
}

// follow{id, bodyId, distance} -> {camera} | {error}
//
// An empty bodyId stops following.
func (c *Camera) follow(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	return c.update(in, func(cam *camera, args cameraArgs) string {
		if args.BodyID != "" && args.Distance <= 0 {
			return "Follow distance must be positive"
		}
		cam.follows = args.BodyID
		cam.distance = args.Distance
		return ""
	})
}

// track{id, target} -> {camera} | {error}
//
// Aims at target and, for a following camera, moves to its follow distance
// above and behind it.
func (c *Camera) track(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	return c.update(in, func(cam *camera, args cameraArgs) string {
		cam.Target = args.Target
		if cam.follows != "" {
			d := cam.distance / math.Sqrt2
			cam.Position = Vector3{X: args.Target.X, Y: args.Target.Y + d, Z: args.Target.Z + d}
		}
		return ""
	})
}

// orbit{id, distance, angle} -> {camera} | {error}
//
// Places the camera on a horizontal circle around its target.
func (c *Camera) orbit(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	return c.update(in, func(cam *camera, args cameraArgs) string {
		cam.Position = Vector3{
			X: cam.Target.X + args.Distance*math.Cos(args.Angle),
			Y: cam.Target.Y,
			Z: cam.Target.Z + args.Distance*math.Sin(args.Angle),
		}
		return ""
	})
}

// zoom{id, factor} -> {camera} | {error}
func (c *Camera) zoom(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	return c.update(in, func(cam *camera, args cameraArgs) string {
		if args.Factor <= 0 {
			return "Zoom factor must be positive"
		}
		cam.FOV = math.Max(minFOV, math.Min(maxFOV, cam.FOV*args.Factor))
		return ""
	})
}

func (c *Camera) where(keep func(*camera, ir.IRObject) bool) queryFunc {
	return func(_ context.Context, in ir.IRObject) ([]ir.IRObject, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		var rows []ir.IRObject
		for _, id := range c.order {
			if cam := c.cameras[id]; keep(cam, in) {
				rows = append(rows, cam.row())
			}
		}
		return rows, nil
	}
}

func (cam *camera) row() ir.IRObject {
	return ir.Obj(
		ir.O("id", str(cam.ID)),
		ir.O("scene", str(cam.Scene)),
		ir.O("position", cam.Position.object()),
		ir.O("target", cam.Target.object()),
		ir.O("fov", ir.IRFloat(cam.FOV)),
		ir.O("near", ir.IRFloat(cam.Near)),
		ir.O("far", ir.IRFloat(cam.Far)),
		ir.O("type", str(cam.Type)),
		ir.O("follows", str(cam.follows)),
		ir.O("distance", ir.IRFloat(cam.distance)),
	)
}

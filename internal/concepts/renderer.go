package concepts

import (
	"context"
	"fmt"
	"sync"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// Renderer keeps a headless scene graph: scenes, the objects that depict
// bodies in them, and a frame counter per scene.
type Renderer struct {
	methods
	mu      sync.Mutex
	scenes  map[string]*scene
	sorder  []string
	objects []*sceneObject
	nextObj int
}

type scene struct {
	ID              string `mapstructure:"id"`
	Canvas          string `mapstructure:"canvas"`
	Width           int64  `mapstructure:"width"`
	Height          int64  `mapstructure:"height"`
	BackgroundColor string `mapstructure:"backgroundColor"`
	frames          int64
}

type sceneObject struct {
	id       string
	scene    string
	bodyID   string
	mesh     string
	position ir.IRValue
	visible  bool
}

func newRenderer(Options) *Renderer {
	r := &Renderer{
		methods: newMethods(),
		scenes:  make(map[string]*scene),
	}
	r.actions["createScene"] = r.createScene
	r.actions["addBody"] = r.addBody
	r.actions["updateBody"] = r.updateBody
	r.actions["removeBody"] = r.removeBody
	r.actions["render"] = r.render
	r.queries["_getScene"] = r.getScene
	r.queries["_getScenes"] = r.getScenes
	r.queries["_getObjects"] = r.objectsWhere(func(o *sceneObject, in ir.IRObject) bool {
		return o.scene == in.String("scene")
	})
	r.queries["_getBodyObjects"] = r.objectsWhere(func(o *sceneObject, in ir.IRObject) bool {
		if s := in.String("scene"); s != "" && o.scene != s {
			return false
		}
		return o.bodyID == in.String("bodyId")
	})
	return r
}

// createScene{id, canvas?, width?, height?, backgroundColor?} -> {scene} | {error}
func (r *Renderer) createScene(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	sc := &scene{Canvas: "canvas", Width: 800, Height: 600, BackgroundColor: "#000011"}
	if err := decode(in, sc); err != nil {
		return nil, err
	}
	if sc.ID == "" {
		return fail("Scene id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.scenes[sc.ID]; exists {
		return fail("Scene already exists")
	}
	r.scenes[sc.ID] = sc
	r.sorder = append(r.sorder, sc.ID)
	return reply(ir.O("scene", str(sc.ID)))
}

type objectArgs struct {
	Scene  string `mapstructure:"scene"`
	BodyID string `mapstructure:"bodyId"`
	Mesh   string `mapstructure:"mesh"`
}

// addBody{scene, bodyId, mesh?} -> {object} | {error}
func (r *Renderer) addBody(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	var args objectArgs
	if err := decode(in, &args); err != nil {
		return nil, err
	}
	if args.Mesh == "" {
		args.Mesh = "sphere"
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.scenes[args.Scene]; !exists {
		return fail("Scene not found")
	}
	if r.find(args.Scene, args.BodyID) != nil {
		return fail("Body already in scene")
	}
	r.nextObj++
	obj := &sceneObject{
		id:       fmt.Sprintf("obj_%d", r.nextObj),
		scene:    args.Scene,
		bodyID:   args.BodyID,
		mesh:     args.Mesh,
		position: ir.IRNull{},
		visible:  true,
	}
	r.objects = append(r.objects, obj)
	return reply(ir.O("object", str(obj.id)))
}

// updateBody{scene, bodyId, position} -> {object} | {error}
func (r *Renderer) updateBody(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.find(in.String("scene"), in.String("bodyId"))
	if obj == nil {
		return fail("Object not found")
	}
	if pos, ok := in.Get("position"); ok {
		obj.position = pos
	}
	return reply(ir.O("object", str(obj.id)))
}

// removeBody{scene, bodyId} -> {object} | {error}
func (r *Renderer) removeBody(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.find(in.String("scene"), in.String("bodyId"))
	if obj == nil {
		return fail("Object not found")
	}
	for i, o := range r.objects {
		if o == obj {
			r.objects = append(r.objects[:i], r.objects[i+1:]...)
			break
		}
	}
	return reply(ir.O("object", str(obj.id)))
}

// render{scene} -> {scene, frame} | {error}
func (r *Renderer) render(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	id := in.String("scene")
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, exists := r.scenes[id]
	if !exists {
		return fail("Scene not found")
	}
	sc.frames++
	return reply(ir.O("scene", str(id)), ir.O("frame", ir.IRInt(sc.frames)))
}

func (r *Renderer) find(sceneID, bodyID string) *sceneObject {
	for _, o := range r.objects {
		if o.scene == sceneID && o.bodyID == bodyID {
			return o
		}
	}
	return nil
}

// _getScene{id} -> [{id, canvas, width, height, backgroundColor, frames}]
func (r *Renderer) getScene(_ context.Context, in ir.IRObject) ([]ir.IRObject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sc, exists := r.scenes[in.String("id")]; exists {
		return []ir.IRObject{sc.row()}, nil
	}
	return nil, nil
}

func (r *Renderer) getScenes(_ context.Context, _ ir.IRObject) ([]ir.IRObject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := make([]ir.IRObject, 0, len(r.sorder))
	for _, id := range r.sorder {
		rows = append(rows, r.scenes[id].row())
	}
	return rows, nil
}

func (r *Renderer) objectsWhere(keep func(*sceneObject, ir.IRObject) bool) queryFunc {
	return func(_ context.Context, in ir.IRObject) ([]ir.IRObject, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		var rows []ir.IRObject
		for _, o := range r.objects {
			if keep(o, in) {
				rows = append(rows, o.row())
			}
		}
		return rows, nil
	}
}

func (sc *scene) row() ir.IRObject {
	return ir.Obj(
		ir.O("id", str(sc.ID)),
		ir.O("canvas", str(sc.Canvas)),
		ir.O("width", ir.IRInt(sc.Width)),
		ir.O("height", ir.IRInt(sc.Height)),
		ir.O("backgroundColor", str(sc.BackgroundColor)),
		ir.O("frames", ir.IRInt(sc.frames)),
	)
}

func (o *sceneObject) row() ir.IRObject {
	return ir.Obj(
		ir.O("id", str(o.id)),
		ir.O("scene", str(o.scene)),
		ir.O("bodyId", str(o.bodyID)),
		ir.O("mesh", str(o.mesh)),
		ir.O("position", o.position),
		ir.O("visible", ir.IRBool(o.visible)),
	)
}

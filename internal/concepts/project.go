package concepts

import (
	"context"
	"sync"
	"time"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// Project stores a user's saved simulation projects. Rows come back in
// creation order.
type Project struct {
	methods
	mu       sync.Mutex
	ids      IDFunc
	now      func() time.Time
	projects map[string]*project
	order    []string
}

type project struct {
	id          string
	name        string
	description string
	kind        string
	userID      string
	public      bool
	config      ir.IRObject
	createdAt   time.Time
	updatedAt   time.Time
}

func newProject(o Options) *Project {
	p := &Project{
		methods:  newMethods(),
		ids:      o.IDs,
		now:      o.Now,
		projects: make(map[string]*project),
	}
	p.actions["create"] = p.create
	p.actions["update"] = p.update
	p.actions["delete"] = p.delete
	p.actions["setPublic"] = p.setPublic
	p.queries["_getById"] = p.getByID
	p.queries["_getByUser"] = p.filter(func(pr *project, in ir.IRObject) bool {
		return pr.userID == in.String("userId")
	})
	p.queries["_getByType"] = p.filter(func(pr *project, in ir.IRObject) bool {
		return pr.kind == in.String("type")
	})
	p.queries["_getPublic"] = p.filter(func(pr *project, _ ir.IRObject) bool {
		return pr.public
	})
	return p
}

type projectArgs struct {
	ID          string         `mapstructure:"id"`
	Name        string         `mapstructure:"name"`
	Description string         `mapstructure:"description"`
	Type        string         `mapstructure:"type"`
	UserID      string         `mapstructure:"userId"`
	Config      map[string]any `mapstructure:"config"`
	IsPublic    bool           `mapstructure:"isPublic"`
}

// create{name, type, userId, description?, config?, id?} -> {project} | {error}
func (p *Project) create(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	var args projectArgs
	if err := decode(in, &args); err != nil {
		return nil, err
	}
	if args.Name == "" || args.UserID == "" {
		return fail("Project name and owner are required")
	}
	config, err := fromGo(args.Config)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	id := args.ID
	if id == "" {
		id = p.ids("project")
	}
	if _, exists := p.projects[id]; exists {
		return fail("Project already exists")
	}
	now := p.now()
	p.projects[id] = &project{
		id:          id,
		name:        args.Name,
		description: args.Description,
		kind:        args.Type,
		userID:      args.UserID,
		config:      config,
		createdAt:   now,
		updatedAt:   now,
	}
	p.order = append(p.order, id)
	return reply(ir.O("project", str(id)))
}

// update{id, name?, description?, config?} -> {project} | {error}
//
// config is merged into the existing configuration.
func (p *Project) update(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	var args projectArgs
	if err := decode(in, &args); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	pr, exists := p.projects[args.ID]
	if !exists {
		return fail("Project not found")
	}
	if args.Name != "" {
		pr.name = args.Name
	}
	if _, set := in["description"]; set {
		pr.description = args.Description
	}
	if len(args.Config) > 0 {
		patch, err := fromGo(args.Config)
		if err != nil {
			return nil, err
		}
		merged := make(ir.IRObject, len(pr.config)+len(patch))
		for k, v := range pr.config {
			merged[k] = v
		}
		for k, v := range patch {
			merged[k] = v
		}
		pr.config = merged
	}
	pr.updatedAt = p.now()
	return reply(ir.O("project", str(pr.id)))
}

// delete{id, userId} -> {project} | {error}
func (p *Project) delete(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	id, owner := in.String("id"), in.String("userId")

	p.mu.Lock()
	defer p.mu.Unlock()
	pr, exists := p.projects[id]
	if !exists {
		return fail("Project not found")
	}
	if pr.userID != owner {
		return fail("Permission denied")
	}
	delete(p.projects, id)
	for i, oid := range p.order {
		if oid == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return reply(ir.O("project", str(id)))
}

// setPublic{id, isPublic} -> {project} | {error}
func (p *Project) setPublic(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	var args projectArgs
	if err := decode(in, &args); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	pr, exists := p.projects[args.ID]
	if !exists {
		return fail("Project not found")
	}
	pr.public = args.IsPublic
	pr.updatedAt = p.now()
	return reply(ir.O("project", str(pr.id)))
}

func (p *Project) getByID(_ context.Context, in ir.IRObject) ([]ir.IRObject, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pr, exists := p.projects[in.String("id")]; exists {
		return []ir.IRObject{pr.row()}, nil
	}
	return nil, nil
}

func (p *Project) filter(keep func(*project, ir.IRObject) bool) queryFunc {
	return func(_ context.Context, in ir.IRObject) ([]ir.IRObject, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		var rows []ir.IRObject
		for _, id := range p.order {
			if pr := p.projects[id]; keep(pr, in) {
				rows = append(rows, pr.row())
			}
		}
		return rows, nil
	}
}

func (pr *project) row() ir.IRObject {
	config := pr.config
	if config == nil {
		config = ir.IRObject{}
	}
	return ir.Obj(
		ir.O("id", str(pr.id)),
		ir.O("name", str(pr.name)),
		ir.O("description", str(pr.description)),
		ir.O("type", str(pr.kind)),
		ir.O("userId", str(pr.userID)),
		ir.O("isPublic", ir.IRBool(pr.public)),
		ir.O("config", config),
		ir.O("createdAt", ir.IRInt(pr.createdAt.UnixMilli())),
		ir.O("updatedAt", ir.IRInt(pr.updatedAt.UnixMilli())),
	)
}

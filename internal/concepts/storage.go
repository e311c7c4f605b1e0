package concepts

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// SimulationStorage keeps named snapshots of simulation data per user.
// Public snapshots can be loaded by anyone; everything else is owner-only.
type SimulationStorage struct {
	methods
	mu    sync.Mutex
	ids   IDFunc
	now   func() time.Time
	saved map[string]*savedSim
	order []string
}

type savedSim struct {
	id          string
	userID      string
	name        string
	description string
	data        ir.IRValue
	public      bool
	createdAt   time.Time
	updatedAt   time.Time
}

func newSimulationStorage(o Options) *SimulationStorage {
	s := &SimulationStorage{
		methods: newMethods(),
		ids:     o.IDs,
		now:     o.Now,
		saved:   make(map[string]*savedSim),
	}
	s.actions["save"] = s.save
	s.actions["update"] = s.update
	s.actions["delete"] = s.delete
	s.actions["load"] = s.load
	s.actions["share"] = s.share
	s.queries["_getById"] = s.where(func(sv *savedSim, in ir.IRObject) bool {
		return sv.id == in.String("id")
	})
	s.queries["_getByUser"] = s.where(func(sv *savedSim, in ir.IRObject) bool {
		return sv.userID == in.String("userId")
	})
	s.queries["_getPublic"] = s.where(func(sv *savedSim, _ ir.IRObject) bool {
		return sv.public
	})
	s.queries["_searchByName"] = s.where(func(sv *savedSim, in ir.IRObject) bool {
		term := strings.ToLower(in.String("name"))
		return sv.public && strings.Contains(strings.ToLower(sv.name), term)
	})
	return s
}

type storageArgs struct {
	ID          string `mapstructure:"id"`
	UserID      string `mapstructure:"userId"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	IsPublic    bool   `mapstructure:"isPublic"`
}

// validate returns the business error for a save or update, or "".
func (a storageArgs) validate(in ir.IRObject) string {
	switch {
	case strings.TrimSpace(a.Name) == "":
		return "Simulation name cannot be empty"
	case a.UserID == "":
		return "User ID is required"
	}
	switch in["data"].(type) {
	case nil, ir.IRNull:
		return "Simulation data cannot be empty"
	}
	return ""
}

// save{userId, name, data, description?, isPublic?, id?} -> {storage} | {error}
func (s *SimulationStorage) save(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	var args storageArgs
	if err := decode(in, &args); err != nil {
		return nil, err
	}
	if msg := args.validate(in); msg != "" {
		return fail(msg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := args.ID
	if id == "" {
		id = s.ids("saved")
	}
	if _, exists := s.saved[id]; exists {
		return fail("Simulation already saved under this id")
	}
	now := s.now()
	s.saved[id] = &savedSim{
		id:          id,
		userID:      args.UserID,
		name:        strings.TrimSpace(args.Name),
		description: args.Description,
		data:        in["data"],
		public:      args.IsPublic,
		createdAt:   now,
		updatedAt:   now,
	}
	s.order = append(s.order, id)
	return reply(ir.O("storage", str(id)))
}

// owned looks up id for userId. Callers hold s.mu.
func (s *SimulationStorage) owned(id, userID, verb string) (*savedSim, string) {
	sv, exists := s.saved[id]
	if !exists {
		return nil, "Simulation not found"
	}
	if sv.userID != userID {
		return nil, "You can only " + verb + " your own simulations"
	}
	return sv, ""
}

// update{id, userId, name, data, description?, isPublic?} -> {storage} | {error}
func (s *SimulationStorage) update(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	var args storageArgs
	if err := decode(in, &args); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sv, msg := s.owned(args.ID, args.UserID, "update")
	if msg != "" {
		return fail(msg)
	}
	if msg := args.validate(in); msg != "" {
		return fail(msg)
	}
	sv.name = strings.TrimSpace(args.Name)
	sv.description = args.Description
	sv.data = in["data"]
	sv.public = args.IsPublic
	sv.updatedAt = s.now()
	return reply(ir.O("storage", str(sv.id)))
}

// delete{id, userId} -> {storage} | {error}
func (s *SimulationStorage) delete(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	id := in.String("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, msg := s.owned(id, in.String("userId"), "delete"); msg != "" {
		return fail(msg)
	}
	delete(s.saved, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return reply(ir.O("storage", str(id)))
}

// load{id, userId} -> {storage, name, description, data, isPublic} | {error}
func (s *SimulationStorage) load(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sv, exists := s.saved[in.String("id")]
	if !exists {
		return fail("Simulation not found")
	}
	if sv.userID != in.String("userId") && !sv.public {
		return fail("Access denied")
	}
	return reply(
		ir.O("storage", str(sv.id)),
		ir.O("name", str(sv.name)),
		ir.O("description", str(sv.description)),
		ir.O("data", sv.data),
		ir.O("isPublic", ir.IRBool(sv.public)),
	)
}

// share{id, userId, isPublic} -> {storage} | {error}
func (s *SimulationStorage) share(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	var args storageArgs
	if err := decode(in, &args); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sv, msg := s.owned(args.ID, args.UserID, "share")
	if msg != "" {
		return fail(msg)
	}
	sv.public = args.IsPublic
	sv.updatedAt = s.now()
	return reply(ir.O("storage", str(sv.id)))
}

func (s *SimulationStorage) where(keep func(*savedSim, ir.IRObject) bool) queryFunc {
	return func(_ context.Context, in ir.IRObject) ([]ir.IRObject, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		var rows []ir.IRObject
		for _, id := range s.order {
			if sv := s.saved[id]; keep(sv, in) {
				rows = append(rows, sv.row())
			}
		}
		return rows, nil
	}
}

func (sv *savedSim) row() ir.IRObject {
	return ir.Obj(
		ir.O("id", str(sv.id)),
		ir.O("userId", str(sv.userID)),
		ir.O("name", str(sv.name)),
		ir.O("description", str(sv.description)),
		ir.O("data", sv.data),
		ir.O("isPublic", ir.IRBool(sv.public)),
		ir.O("createdAt", ir.IRInt(sv.createdAt.UnixMilli())),
		ir.O("updatedAt", ir.IRInt(sv.updatedAt.UnixMilli())),
	)
}

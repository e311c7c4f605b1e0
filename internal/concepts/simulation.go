package concepts

import (
	"context"
	"sync"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// Simulation owns simulation clocks. Each step advances time by
// stepSize*speed unless the simulation is paused.
type Simulation struct {
	methods
	mu    sync.Mutex
	ids   IDFunc
	sims  map[string]*simulation
	order []string
}

type simulation struct {
	id       string
	time     float64
	speed    float64
	stepSize float64
	paused   bool
}

func newSimulation(o Options) *Simulation {
	s := &Simulation{
		methods: newMethods(),
		ids:     o.IDs,
		sims:    make(map[string]*simulation),
	}
	s.actions["create"] = s.create
	s.actions["step"] = s.step
	s.actions["pause"] = s.mutate(func(sim *simulation, _ simArgs) { sim.paused = true })
	s.actions["resume"] = s.mutate(func(sim *simulation, _ simArgs) { sim.paused = false })
	s.actions["reset"] = s.mutate(func(sim *simulation, _ simArgs) { sim.time = 0 })
	s.actions["setSpeed"] = s.mutate(func(sim *simulation, a simArgs) {
		if a.Speed != nil {
			sim.speed = *a.Speed
		}
	})
	s.actions["setTime"] = s.mutate(func(sim *simulation, a simArgs) {
		if a.Time != nil {
			sim.time = *a.Time
		}
	})
	s.queries["_getById"] = s.getByID
	s.queries["_getActive"] = s.getActive
	return s
}

type simArgs struct {
	ID       string   `mapstructure:"id"`
	Time     *float64 `mapstructure:"time"`
	Speed    *float64 `mapstructure:"speed"`
	StepSize *float64 `mapstructure:"stepSize"`
}

// create{id?, time?, speed?, stepSize?} -> {id} | {error}
//
// Defaults: time 0, speed 1, stepSize 1.
func (s *Simulation) create(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	var args simArgs
	if err := decode(in, &args); err != nil {
		return nil, err
	}
	sim := &simulation{speed: 1, stepSize: 1}
	if args.Time != nil {
		sim.time = *args.Time
	}
	if args.Speed != nil {
		sim.speed = *args.Speed
	}
	if args.StepSize != nil {
		sim.stepSize = *args.StepSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sim.id = args.ID
	if sim.id == "" {
		sim.id = s.ids("sim")
	}
	if _, exists := s.sims[sim.id]; exists {
		return fail("Simulation already exists")
	}
	s.sims[sim.id] = sim
	s.order = append(s.order, sim.id)
	return reply(ir.O("id", str(sim.id)))
}

// step{id} -> {id, time} | {error}
func (s *Simulation) step(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	id := in.String("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	sim, exists := s.sims[id]
	if !exists {
		return fail("Simulation not found")
	}
	if !sim.paused {
		sim.time += sim.stepSize * sim.speed
	}
	return reply(ir.O("id", str(id)), ir.O("time", ir.IRFloat(sim.time)))
}

// mutate builds an action that applies fn to an existing simulation and
// returns {id}.
func (s *Simulation) mutate(fn func(*simulation, simArgs)) actionFunc {
	return func(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
		var args simArgs
		if err := decode(in, &args); err != nil {
			return nil, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		sim, exists := s.sims[args.ID]
		if !exists {
			return fail("Simulation not found")
		}
		fn(sim, args)
		return reply(ir.O("id", str(sim.id)))
	}
}

// _getById{id} -> [{id, time, speed, stepSize, paused}]
func (s *Simulation) getByID(_ context.Context, in ir.IRObject) ([]ir.IRObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sim, exists := s.sims[in.String("id")]; exists {
		return []ir.IRObject{sim.row()}, nil
	}
	return nil, nil
}

// _getActive{} -> every running simulation
func (s *Simulation) getActive(_ context.Context, _ ir.IRObject) ([]ir.IRObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []ir.IRObject
	for _, id := range s.order {
		if sim := s.sims[id]; !sim.paused {
			rows = append(rows, sim.row())
		}
	}
	return rows, nil
}

func (sim *simulation) row() ir.IRObject {
	return ir.Obj(
		ir.O("id", str(sim.id)),
		ir.O("time", ir.IRFloat(sim.time)),
		ir.O("speed", ir.IRFloat(sim.speed)),
		ir.O("stepSize", ir.IRFloat(sim.stepSize)),
		ir.O("paused", ir.IRBool(sim.paused)),
	)
}

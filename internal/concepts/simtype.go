package concepts

import (
	"context"
	"sync"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// SimulationType is the catalog of simulation kinds a project can be
// created with. Registered types start active.
type SimulationType struct {
	methods
	mu    sync.Mutex
	types map[string]*simType
	order []string
}

type simType struct {
	ID            string         `mapstructure:"id"`
	Name          string         `mapstructure:"name"`
	Description   string         `mapstructure:"description"`
	Category      string         `mapstructure:"category"`
	Icon          string         `mapstructure:"icon"`
	Version       string         `mapstructure:"version"`
	DefaultConfig map[string]any `mapstructure:"defaultConfig"`
	active        bool
	config        ir.IRObject
}

func newSimulationType(Options) *SimulationType {
	st := &SimulationType{
		methods: newMethods(),
		types:   make(map[string]*simType),
	}
	st.actions["register"] = st.register
	st.actions["activate"] = st.setActive(true)
	st.actions["deactivate"] = st.setActive(false)
	st.actions["updateDefaultConfig"] = st.updateDefaultConfig
	st.queries["_getById"] = st.where(func(t *simType, in ir.IRObject) bool {
		return t.ID == in.String("id")
	})
	st.queries["_getActive"] = st.where(func(t *simType, _ ir.IRObject) bool {
		return t.active
	})
	st.queries["_getByCategory"] = st.where(func(t *simType, in ir.IRObject) bool {
		return t.Category == in.String("category")
	})
	return st
}

// register{id, name, category, description?, icon?, version?, defaultConfig?} -> {type} | {error}
//
// Registering an existing id replaces its description and reactivates it.
func (st *SimulationType) register(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	t := &simType{Version: "1.0.0"}
	if err := decode(in, t); err != nil {
		return nil, err
	}
	if t.ID == "" || t.Name == "" {
		return fail("Simulation type id and name are required")
	}
	config, err := fromGo(t.DefaultConfig)
	if err != nil {
		return nil, err
	}
	t.config = config
	t.active = true

	st.mu.Lock()
	defer st.mu.Unlock()
	if _, exists := st.types[t.ID]; !exists {
		st.order = append(st.order, t.ID)
	}
	st.types[t.ID] = t
	return reply(ir.O("type", str(t.ID)))
}

func (st *SimulationType) setActive(active bool) actionFunc {
	return func(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
		st.mu.Lock()
		defer st.mu.Unlock()
		t, exists := st.types[in.String("id")]
		if !exists {
			return fail("Simulation type not found")
		}
		t.active = active
		return reply(ir.O("type", str(t.ID)))
	}
}

// updateDefaultConfig{id, defaultConfig} -> {type} | {error}
//
// The patch is merged over the current defaults.
func (st *SimulationType) updateDefaultConfig(_ context.Context, in ir.IRObject) (ir.IRObject, error) {
	var args simType
	if err := decode(in, &args); err != nil {
		return nil, err
	}
	patch, err := fromGo(args.DefaultConfig)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	t, exists := st.types[args.ID]
	if !exists {
		return fail("Simulation type not found")
	}
	merged := make(ir.IRObject, len(t.config)+len(patch))
	for k, v := range t.config {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	t.config = merged
	return reply(ir.O("type", str(t.ID)))
}

func (st *SimulationType) where(keep func(*simType, ir.IRObject) bool) queryFunc {
	return func(_ context.Context, in ir.IRObject) ([]ir.IRObject, error) {
		st.mu.Lock()
		defer st.mu.Unlock()
		var rows []ir.IRObject
		for _, id := range st.order {
			if t := st.types[id]; keep(t, in) {
				rows = append(rows, t.row())
			}
		}
		return rows, nil
	}
}

func (t *simType) row() ir.IRObject {
	config := t.config
	if config == nil {
		config = ir.IRObject{}
	}
	return ir.Obj(
		ir.O("id", str(t.ID)),
		ir.O("name", str(t.Name)),
		ir.O("description", str(t.Description)),
		ir.O("category", str(t.Category)),
		ir.O("icon", str(t.Icon)),
		ir.O("version", str(t.Version)),
		ir.O("isActive", ir.IRBool(t.active)),
		ir.O("defaultConfig", config),
	)
}

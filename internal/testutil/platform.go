package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/concepts"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/syncs"
)

// Platform is the demo concepts and rule sets composed with deterministic
// collaborators: flow tokens flow-1, flow-2, ..., entity ids kind-N, a
// Clock fixed at Epoch and the cheapest bcrypt cost. Two platforms fed the
// same stimuli produce byte-identical traces.
type Platform struct {
	Engine  *engine.Engine
	Handles map[string]*engine.Handle
	Clock   *Clock
}

type platformConfig struct {
	logger     *slog.Logger
	sets       []syncs.Set
	engineOpts []engine.EngineOption
}

// PlatformOption configures NewPlatform.
type PlatformOption func(*platformConfig)

// WithLogger sets the engine logger. Defaults to a discarding logger.
func WithLogger(logger *slog.Logger) PlatformOption {
	return func(c *platformConfig) { c.logger = logger }
}

// WithRules replaces the built-in rule sets.
func WithRules(sets ...syncs.Set) PlatformOption {
	return func(c *platformConfig) { c.sets = sets }
}

// WithEngineOptions appends engine options, applied after the
// deterministic defaults.
func WithEngineOptions(opts ...engine.EngineOption) PlatformOption {
	return func(c *platformConfig) { c.engineOpts = append(c.engineOpts, opts...) }
}

// NewPlatform composes a deterministic platform.
func NewPlatform(opts ...PlatformOption) (*Platform, error) {
	cfg := platformConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		sets:   syncs.All(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	clock := NewClock(Epoch)
	engineOpts := append([]engine.EngineOption{
		engine.WithLogger(cfg.logger),
		engine.WithFlowGenerator(engine.NewSequenceGenerator("flow")),
	}, cfg.engineOpts...)
	e := engine.New(engineOpts...)

	handles, err := e.Instrument(concepts.New(
		concepts.WithIDs(concepts.Sequential()),
		concepts.WithNow(clock.Now),
		concepts.WithPasswordCost(bcrypt.MinCost),
	))
	if err != nil {
		return nil, fmt.Errorf("instrument concepts: %w", err)
	}
	for _, set := range cfg.sets {
		if err := e.Register(set.Name, set.Rules...); err != nil {
			return nil, fmt.Errorf("register %s: %w", set.Name, err)
		}
	}
	return &Platform{Engine: e, Handles: handles, Clock: clock}, nil
}

// Dispatch runs action ("Concept.action") as a stimulus.
func (p *Platform) Dispatch(ctx context.Context, action string, input ir.IRObject) (*engine.Outcome, error) {
	ref, err := ir.ParseActionRef(action)
	if err != nil {
		return nil, err
	}
	h, ok := p.Handles[ref.Concept()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownConcept, ref.Concept())
	}
	return h.Dispatch(ctx, ref.Name(), input)
}

// Query runs query ("Concept._query").
func (p *Platform) Query(ctx context.Context, query string, args ir.IRObject) ([]ir.IRObject, error) {
	ref, err := ir.ParseActionRef(query)
	if err != nil {
		return nil, err
	}
	h, ok := p.Handles[ref.Concept()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownConcept, ref.Concept())
	}
	return h.Query(ctx, ref.Name(), args)
}

// Response returns the API response stored for request, or IRNull when no
// rule answered it.
func (p *Platform) Response(ctx context.Context, request ir.IRValue) (ir.IRValue, error) {
	rows, err := p.Query(ctx, "API._get", ir.IRObject{"request": request})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return ir.IRNull{}, nil
	}
	out, ok := rows[0]["output"]
	if !ok {
		return ir.IRNull{}, nil
	}
	return out, nil
}

// Seed registers the built-in simulation types and creates the sun and the
// eight planets.
func (p *Platform) Seed(ctx context.Context) error {
	for _, st := range concepts.SimulationTypes() {
		if _, err := p.Dispatch(ctx, "SimulationType.register", st); err != nil {
			return fmt.Errorf("seed %s: %w", st.String("id"), err)
		}
	}
	for _, body := range concepts.SolarSystem() {
		if _, err := p.Dispatch(ctx, "CelestialBody.create", body); err != nil {
			return fmt.Errorf("seed %s: %w", body.String("id"), err)
		}
	}
	return nil
}

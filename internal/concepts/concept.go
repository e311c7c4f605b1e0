package concepts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// ErrInvalidInput is wrapped by errors for inputs that cannot be decoded
// into an action's arguments.
var ErrInvalidInput = errors.New("invalid input")

type actionFunc func(ctx context.Context, in ir.IRObject) (ir.IRObject, error)
type queryFunc func(ctx context.Context, in ir.IRObject) ([]ir.IRObject, error)

// methods dispatches actions and queries by name. Concepts embed it and
// fill the tables in their constructors.
type methods struct {
	actions map[string]actionFunc
	queries map[string]queryFunc
}

func newMethods() methods {
	return methods{
		actions: make(map[string]actionFunc),
		queries: make(map[string]queryFunc),
	}
}

// Invoke implements engine.Concept.
func (m methods) Invoke(ctx context.Context, action string, in ir.IRObject) (ir.IRObject, error) {
	fn, ok := m.actions[action]
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownAction, action)
	}
	return fn(ctx, in)
}

// Query implements engine.Concept.
func (m methods) Query(ctx context.Context, query string, in ir.IRObject) ([]ir.IRObject, error) {
	fn, ok := m.queries[query]
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownAction, query)
	}
	return fn(ctx, in)
}

// IDFunc returns a fresh identifier for an entity of the given kind.
type IDFunc func(kind string) string

// UUIDs returns identifiers of the form kind_<uuid>.
func UUIDs() IDFunc {
	return func(kind string) string {
		return kind + "_" + uuid.NewString()
	}
}

// Sequential returns kind-1, kind-2, ... counting per kind. Deterministic,
// for tests and scenarios.
func Sequential() IDFunc {
	var mu sync.Mutex
	counts := make(map[string]int)
	return func(kind string) string {
		mu.Lock()
		defer mu.Unlock()
		counts[kind]++
		return fmt.Sprintf("%s-%d", kind, counts[kind])
	}
}

// Options configures the demo concepts.
type Options struct {
	// IDs generates entity identifiers and tokens. Defaults to UUIDs().
	IDs IDFunc

	// Now is the wall clock used for timestamps and session expiry.
	// Defaults to time.Now.
	Now func() time.Time

	// PasswordCost is the bcrypt cost for User passwords. Defaults to
	// bcrypt.DefaultCost.
	PasswordCost int
}

// Option modifies Options.
type Option func(*Options)

// WithIDs sets the identifier generator.
func WithIDs(ids IDFunc) Option {
	return func(o *Options) { o.IDs = ids }
}

// WithNow sets the wall clock.
func WithNow(now func() time.Time) Option {
	return func(o *Options) { o.Now = now }
}

// WithPasswordCost sets the bcrypt cost.
func WithPasswordCost(cost int) Option {
	return func(o *Options) { o.PasswordCost = cost }
}

func buildOptions(opts []Option) Options {
	o := Options{IDs: UUIDs(), Now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns every demo concept keyed by its concept name, ready for
// engine.Instrument.
func New(opts ...Option) map[string]engine.Concept {
	o := buildOptions(opts)
	return map[string]engine.Concept{
		"API":               newAPI(o),
		"User":              newUser(o),
		"Session":           newSession(o),
		"Project":           newProject(o),
		"SimulationType":    newSimulationType(o),
		"SimulationStorage": newSimulationStorage(o),
		"Simulation":        newSimulation(o),
		"CelestialBody":     newCelestialBody(o),
		"Renderer":          newRenderer(o),
		"Camera":            newCamera(o),
	}
}

// decode copies input fields into the mapstructure-tagged struct out.
// Numbers convert between int and float; unknown fields are ignored.
func decode(in ir.IRObject, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(ir.ToGo(in)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// fromGo converts a concept-built map into an IRObject.
func fromGo(m map[string]any) (ir.IRObject, error) {
	obj, err := ir.ObjectFromGo(m)
	if err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}
	return obj, nil
}

func reply(pairs ...ir.IRPair) (ir.IRObject, error) {
	return ir.Obj(pairs...), nil
}

func fail(msg string) (ir.IRObject, error) {
	return ir.ErrorOutput(msg), nil
}

func str(s string) ir.IRString { return ir.IRString(s) }

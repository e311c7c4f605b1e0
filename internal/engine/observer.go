package engine

import (
	"context"
	"errors"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// Firing describes one rule firing for one frame.
type Firing struct {
	Rule     string
	Flow     string
	Trigger  ir.ActionRecord
	Bindings ir.IRObject
}

// Observer receives engine events. Calls are made synchronously on the
// dispatching goroutine, in cascade order; implementations must not invoke
// concepts.
type Observer interface {
	OnRecord(ctx context.Context, rec ir.ActionRecord)
	OnFiring(ctx context.Context, f Firing)
	OnFault(ctx context.Context, f *Fault)
	OnCascade(ctx context.Context, out *Outcome)
}

// NopObserver implements Observer with no-ops. Embed it to implement a
// subset.
type NopObserver struct{}

func (NopObserver) OnRecord(context.Context, ir.ActionRecord) {}
func (NopObserver) OnFiring(context.Context, Firing)          {}
func (NopObserver) OnFault(context.Context, *Fault)           {}
func (NopObserver) OnCascade(context.Context, *Outcome)       {}

type observers []Observer

func (os observers) record(ctx context.Context, rec ir.ActionRecord) {
	for _, o := range os {
		o.OnRecord(ctx, rec)
	}
}

func (os observers) firing(ctx context.Context, f Firing) {
	for _, o := range os {
		o.OnFiring(ctx, f)
	}
}

func (os observers) fault(ctx context.Context, f *Fault) {
	for _, o := range os {
		o.OnFault(ctx, f)
	}
}

func (os observers) cascade(ctx context.Context, out *Outcome) {
	for _, o := range os {
		o.OnCascade(ctx, out)
	}
}

func joinErrors(errs []error) error {
	return errors.Join(errs...)
}

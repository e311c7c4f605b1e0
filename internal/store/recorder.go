package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// Recorder is an engine.Observer that writes records and faults to the
// store. Observers cannot fail a cascade, so write errors are logged and
// kept for Err.
type Recorder struct {
	engine.NopObserver

	store  *Store
	logger *slog.Logger

	mu   sync.Mutex
	errs []error
}

// NewRecorder returns a Recorder writing to s. A nil logger uses
// slog.Default().
func NewRecorder(s *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: s, logger: logger}
}

// OnRecord implements engine.Observer.
func (r *Recorder) OnRecord(ctx context.Context, rec ir.ActionRecord) {
	if err := r.store.WriteRecord(context.WithoutCancel(ctx), rec); err != nil {
		r.fail(err, "record", rec.ID)
	}
}

// OnFault implements engine.Observer.
func (r *Recorder) OnFault(ctx context.Context, f *engine.Fault) {
	if err := r.store.WriteFault(context.WithoutCancel(ctx), f); err != nil {
		r.fail(err, "flow", f.Flow)
	}
}

// Err returns every write error seen so far, joined.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.errs...)
}

func (r *Recorder) fail(err error, key, value string) {
	r.logger.Error("trace log write failed", key, value, "error", err)
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

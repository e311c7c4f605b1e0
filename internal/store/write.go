package store

import (
	"context"
	"fmt"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// WriteRecord appends an action record. Record ids are content-addressed,
// so writing the same record twice is a no-op.
func (s *Store) WriteRecord(ctx context.Context, rec ir.ActionRecord) error {
	input, err := marshalObject(rec.Input)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	output, err := marshalObject(rec.Output)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records
		(id, flow, seq, depth, action, input, output, cause, rule, is_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Flow,
		rec.Seq,
		rec.Depth,
		string(rec.Action),
		input,
		output,
		rec.Cause,
		rec.Rule,
		rec.IsError(),
	)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// WriteFault appends a fault.
func (s *Store) WriteFault(ctx context.Context, f *engine.Fault) error {
	var cause string
	if f.Err != nil {
		cause = f.Err.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO faults
		(flow, code, message, rule, action, variable, depth, trigger_id, root_id, root_action, cause)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		f.Flow,
		string(f.Code),
		f.Message,
		f.Rule,
		string(f.Action),
		f.Variable,
		f.Depth,
		f.Trigger,
		f.RootID,
		string(f.RootAction),
		cause,
	)
	if err != nil {
		return fmt.Errorf("write fault: %w", err)
	}
	return nil
}

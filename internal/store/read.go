package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// FaultRow is a stored fault.
type FaultRow struct {
	ID         int64        `json:"id"`
	Flow       string       `json:"flow"`
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Rule       string       `json:"rule,omitempty"`
	Action     ir.ActionRef `json:"action,omitempty"`
	Variable   string       `json:"variable,omitempty"`
	Depth      int          `json:"depth"`
	Trigger    string       `json:"trigger,omitempty"`
	RootID     string       `json:"root_id,omitempty"`
	RootAction ir.ActionRef `json:"root_action,omitempty"`
	Cause      string       `json:"cause,omitempty"`
}

// FlowSummary describes one stored cascade.
type FlowSummary struct {
	Flow     string       `json:"flow"`
	Root     ir.ActionRef `json:"root"`
	FirstSeq int64        `json:"first_seq"`
	Records  int          `json:"records"`
	Errors   int          `json:"errors"`
	Faults   int          `json:"faults"`
}

// ReadFlow returns the records of a flow in sequence order. Returns an empty
// slice, not nil, for an unknown flow.
func (s *Store) ReadFlow(ctx context.Context, flow string) ([]ir.ActionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, flow, seq, depth, action, input, output, cause, rule
		FROM records
		WHERE flow = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, flow)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []ir.ActionRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// ReadRecord returns one record by id. Reports false if it does not exist.
func (s *Store) ReadRecord(ctx context.Context, id string) (ir.ActionRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, flow, seq, depth, action, input, output, cause, rule
		FROM records
		WHERE id = ?
	`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return ir.ActionRecord{}, false, nil
	}
	if err != nil {
		return ir.ActionRecord{}, false, err
	}
	return rec, true, nil
}

// ReadCaused returns the records directly caused by the record id, in
// sequence order.
func (s *Store) ReadCaused(ctx context.Context, id string) ([]ir.ActionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, flow, seq, depth, action, input, output, cause, rule
		FROM records
		WHERE cause = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query caused records: %w", err)
	}
	defer rows.Close()

	records := []ir.ActionRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate caused records: %w", err)
	}
	return records, nil
}

// ReadFaults returns the faults of a flow in the order they were raised. An
// empty flow returns every fault.
func (s *Store) ReadFaults(ctx context.Context, flow string) ([]FaultRow, error) {
	query := `
		SELECT id, flow, code, message, rule, action, variable, depth, trigger_id, root_id, root_action, cause
		FROM faults`
	var args []any
	if flow != "" {
		query += " WHERE flow = ?"
		args = append(args, flow)
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query faults: %w", err)
	}
	defer rows.Close()

	faults := []FaultRow{}
	for rows.Next() {
		var f FaultRow
		var action, rootAction string
		if err := rows.Scan(&f.ID, &f.Flow, &f.Code, &f.Message, &f.Rule, &action,
			&f.Variable, &f.Depth, &f.Trigger, &f.RootID, &rootAction, &f.Cause); err != nil {
			return nil, fmt.Errorf("scan fault: %w", err)
		}
		f.Action = ir.ActionRef(action)
		f.RootAction = ir.ActionRef(rootAction)
		faults = append(faults, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faults: %w", err)
	}
	return faults, nil
}

// ListFlows summarizes every flow with at least one record, oldest first.
func (s *Store) ListFlows(ctx context.Context) ([]FlowSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.flow,
		       MIN(r.seq) AS first_seq,
		       COUNT(*),
		       SUM(r.is_error),
		       COALESCE((SELECT action FROM records r2
		                 WHERE r2.flow = r.flow AND r2.cause = ''
		                 ORDER BY r2.seq ASC LIMIT 1), ''),
		       (SELECT COUNT(*) FROM faults f WHERE f.flow = r.flow)
		FROM records r
		GROUP BY r.flow
		ORDER BY first_seq ASC, r.flow COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query flows: %w", err)
	}
	defer rows.Close()

	flows := []FlowSummary{}
	for rows.Next() {
		var fs FlowSummary
		var root string
		if err := rows.Scan(&fs.Flow, &fs.FirstSeq, &fs.Records, &fs.Errors, &root, &fs.Faults); err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		fs.Root = ir.ActionRef(root)
		flows = append(flows, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flows: %w", err)
	}
	return flows, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (ir.ActionRecord, error) {
	var rec ir.ActionRecord
	var action, input, output string
	if err := row.Scan(&rec.ID, &rec.Flow, &rec.Seq, &rec.Depth, &action,
		&input, &output, &rec.Cause, &rec.Rule); err != nil {
		if err == sql.ErrNoRows {
			return rec, err
		}
		return rec, fmt.Errorf("scan record: %w", err)
	}
	rec.Action = ir.ActionRef(action)

	var err error
	if rec.Input, err = unmarshalObject(input); err != nil {
		return rec, fmt.Errorf("record %s input: %w", rec.ID, err)
	}
	if rec.Output, err = unmarshalObject(output); err != nil {
		return rec, fmt.Errorf("record %s output: %w", rec.ID, err)
	}
	return rec, nil
}

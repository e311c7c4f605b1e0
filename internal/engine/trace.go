package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// TraceLevel controls how much of each cascade is logged.
type TraceLevel int32

const (
	// TraceOff logs faults only.
	TraceOff TraceLevel = iota
	// TraceSummary logs fired rules and the actions they trigger.
	TraceSummary
	// TraceFull also logs frames and record contents.
	TraceFull
)

func (l TraceLevel) String() string {
	switch l {
	case TraceOff:
		return "off"
	case TraceSummary:
		return "summary"
	case TraceFull:
		return "full"
	}
	return fmt.Sprintf("TraceLevel(%d)", int32(l))
}

// ParseTraceLevel parses "off", "summary" or "full".
func ParseTraceLevel(s string) (TraceLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none", "":
		return TraceOff, nil
	case "summary":
		return TraceSummary, nil
	case "full", "verbose":
		return TraceFull, nil
	}
	return TraceOff, fmt.Errorf("invalid trace level %q: want off, summary or full", s)
}

// tracer is the engine's built-in logging observer.
type tracer struct {
	logger *slog.Logger
	level  func() TraceLevel
}

func (t tracer) OnRecord(ctx context.Context, rec ir.ActionRecord) {
	lvl := t.level()
	if lvl == TraceOff {
		return
	}
	attrs := []any{
		"action", rec.Action,
		"flow", rec.Flow,
		"seq", rec.Seq,
		"depth", rec.Depth,
	}
	if rec.Rule != "" {
		attrs = append(attrs, "rule", rec.Rule)
	}
	if rec.IsError() {
		attrs = append(attrs, "error", rec.Output.String(ir.ErrorField))
	}
	if lvl == TraceFull {
		attrs = append(attrs, "input", jsonAttr(rec.Input), "output", jsonAttr(rec.Output), "id", rec.ID)
	}
	t.logger.InfoContext(ctx, "action completed", attrs...)
}

func (t tracer) OnFiring(ctx context.Context, f Firing) {
	lvl := t.level()
	if lvl == TraceOff {
		return
	}
	attrs := []any{
		"rule", f.Rule,
		"trigger", f.Trigger.Action,
		"flow", f.Flow,
	}
	if lvl == TraceFull {
		attrs = append(attrs, "frame", jsonAttr(f.Bindings))
	}
	t.logger.InfoContext(ctx, "rule fired", attrs...)
}

// OnFault logs at error level regardless of the trace level.
func (t tracer) OnFault(ctx context.Context, f *Fault) {
	attrs := []any{
		"code", string(f.Code),
		"flow", f.Flow,
		"depth", f.Depth,
	}
	if f.Rule != "" {
		attrs = append(attrs, "rule", f.Rule)
	}
	if f.Action != "" {
		attrs = append(attrs, "action", f.Action)
	}
	if f.Variable != "" {
		attrs = append(attrs, "variable", f.Variable)
	}
	if f.RootID != "" {
		attrs = append(attrs, "root_id", f.RootID, "root_action", f.RootAction)
	}
	if f.Err != nil {
		attrs = append(attrs, "err", f.Err)
	}
	t.logger.ErrorContext(ctx, f.Message, attrs...)
}

func (t tracer) OnCascade(ctx context.Context, out *Outcome) {
	if t.level() == TraceOff {
		return
	}
	t.logger.InfoContext(ctx, "cascade complete",
		"flow", out.Flow,
		"root", out.Root.Action,
		"records", len(out.Records),
		"faults", len(out.Faults),
		"max_depth", out.MaxDepth(),
	)
}

func jsonAttr(obj ir.IRObject) string {
	b, err := obj.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(b)
}

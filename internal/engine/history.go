package engine

import (
	"sync"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// history is a bounded ring of the most recent records across cascades.
// It serves diagnostics (Engine.Recent); matching never reads it.
type history struct {
	mu   sync.Mutex
	buf  []ir.ActionRecord
	next int
	full bool
}

func newHistory(size int) *history {
	if size <= 0 {
		return nil
	}
	return &history{buf: make([]ir.ActionRecord, size)}
}

func (h *history) push(rec ir.ActionRecord) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf[h.next] = rec
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

// snapshot returns the retained records, oldest first.
func (h *history) snapshot() []ir.ActionRecord {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.full {
		return append([]ir.ActionRecord(nil), h.buf[:h.next]...)
	}
	out := make([]ir.ActionRecord, 0, len(h.buf))
	out = append(out, h.buf[h.next:]...)
	return append(out, h.buf[:h.next]...)
}

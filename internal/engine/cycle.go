package engine

import "sync"

// CycleDetector tracks rule firings per flow so that a rule firing twice
// with identical bindings in one cascade can be reported instead of
// recursing until the depth ceiling.
//
// Example:
//
//	Simulation.step → Advance fires → Simulation.step{id: "main"}
//	→ Advance would fire again with {id: "main"}  ← cycle
//
// Detection is opt-in (WithCycleDetection): legitimate bounded recursion
// can repeat bindings, and the depth ceiling is the backstop either way.
type CycleDetector struct {
	mu      sync.Mutex
	history map[string]map[string]bool // flow → rule:binding_hash
}

// NewCycleDetector creates a new cycle detector.
func NewCycleDetector() *CycleDetector {
	return &CycleDetector{
		history: make(map[string]map[string]bool),
	}
}

// WouldCycle reports whether (ruleID, bindingHash) already fired in flow.
func (c *CycleDetector) WouldCycle(flow, ruleID, bindingHash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.history[flow] == nil {
		return false
	}
	return c.history[flow][ruleID+":"+bindingHash]
}

// Record marks (ruleID, bindingHash) as fired in flow.
func (c *CycleDetector) Record(flow, ruleID, bindingHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.history[flow] == nil {
		c.history[flow] = make(map[string]bool)
	}
	c.history[flow][ruleID+":"+bindingHash] = true
}

// Clear drops the history of a finished flow.
func (c *CycleDetector) Clear(flow string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.history, flow)
}

// HistorySize returns the number of flows with tracked history.
func (c *CycleDetector) HistorySize() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.history)
}

// FlowHistorySize returns the number of firings tracked for a flow.
func (c *CycleDetector) FlowHistorySize(flow string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.history[flow])
}

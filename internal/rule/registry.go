package rule

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
)

// ErrSealed is returned when rules are added after dispatch has started.
var ErrSealed = errors.New("rule registry is sealed")

// Registry holds the rules of one engine in declaration order, indexed by
// the actions that can trigger them.
type Registry struct {
	mu       sync.RWMutex
	rules    []*SyncRule
	ids      map[string]bool
	sets     []string
	byAction map[ir.ActionRef][]*SyncRule
	sealed   bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ids:      make(map[string]bool),
		byAction: make(map[ir.ActionRef][]*SyncRule),
	}
}

// Add appends a named collection of rules. Either every rule is added or
// none is: names must be unique within the registry.
func (r *Registry) Add(set string, rules ...SyncRule) error {
	if set == "" {
		return errors.New("rule set name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrSealed
	}

	batch := make([]*SyncRule, 0, len(rules))
	seen := make(map[string]bool, len(rules))
	for i := range rules {
		rl := rules[i]
		if rl.syms == nil {
			return fmt.Errorf("rule set %q: rule %q was not built", set, rl.Name)
		}
		rl.Set = set
		id := rl.ID()
		if r.ids[id] || seen[id] {
			return fmt.Errorf("rule set %q: duplicate rule %q", set, id)
		}
		seen[id] = true
		batch = append(batch, &rl)
	}

	for _, rl := range batch {
		r.ids[rl.ID()] = true
		r.rules = append(r.rules, rl)
		for _, a := range rl.Triggers() {
			r.byAction[a] = append(r.byAction[a], rl)
		}
	}
	r.sets = append(r.sets, set)
	return nil
}

// Seal forbids further additions.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Candidates returns, in declaration order, the rules with a when pattern
// on action.
func (r *Registry) Candidates(action ir.ActionRef) []*SyncRule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byAction[action]
}

// Rules returns every rule in declaration order.
func (r *Registry) Rules() []*SyncRule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*SyncRule(nil), r.rules...)
}

// Sets returns the registered collection names in order.
func (r *Registry) Sets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.sets...)
}

// Len returns the number of rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

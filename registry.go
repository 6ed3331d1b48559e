package policyeval

import (
	"fmt"
	"sort"
	"sync"
)

// Predicate is a named boolean function usable inside a policy expression.
// Implementations must be pure (diagnostic logging aside), must return false
// in validation mode, and must reference-validate their string arguments
// there instead.
type Predicate interface {
	Name() string
	Input() string
	Description() string
	Examples() []string
	Evaluate(ec *EvalContext, args []string) (bool, error)
}

// FunctionDoc describes a registered predicate for documentation surfaces
type FunctionDoc struct {
	Name        string   `json:"name"`
	Input       string   `json:"input"`
	Description string   `json:"description"`
	Examples    []string `json:"examples"`
}

// Registry is the closed, inspectable catalog of predicates available to
// expressions. Built at process start, looked up by name during parsing.
type Registry struct {
	mu    sync.RWMutex
	preds map[string]Predicate
}

func NewRegistry() *Registry {
	return &Registry{preds: make(map[string]Predicate)}
}

// BuiltinRegistry returns a registry with the standard predicate set
func BuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, p := range []Predicate{
		noOwnerFn{},
		isOwnerFn{},
		matchAllTagsFn{},
		matchAnyTagFn{},
		matchTeamFn{},
		inAnyTeamFn{},
		hasAnyRoleFn{},
	} {
		_ = r.Register(p)
	}
	return r
}

// Register adds a predicate; duplicate names are rejected
func (r *Registry) Register(p Predicate) error {
	if p == nil || p.Name() == "" {
		return fmt.Errorf("predicate must have a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.preds[p.Name()]; exists {
		return fmt.Errorf("predicate already registered: %s", p.Name())
	}
	r.preds[p.Name()] = p
	return nil
}

// Lookup resolves a predicate by name
func (r *Registry) Lookup(name string) (Predicate, bool) {
	r.mu.RLock()
	p, ok := r.preds[name]
	r.mu.RUnlock()
	return p, ok
}

// Functions lists the registered predicates sorted by name
func (r *Registry) Functions() []FunctionDoc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FunctionDoc, 0, len(r.preds))
	for _, p := range r.preds {
		out = append(out, FunctionDoc{
			Name:        p.Name(),
			Input:       p.Input(),
			Description: p.Description(),
			Examples:    p.Examples(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

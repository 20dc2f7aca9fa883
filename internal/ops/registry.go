package ops

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry holds all executable operations. It is thread-safe and supports
// registration at runtime.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]*Operation

	byCategory map[Category][]*Operation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ops:        make(map[string]*Operation),
		byCategory: make(map[Category][]*Operation),
	}
}

// Register adds an operation. Duplicate names are rejected.
func (r *Registry) Register(op *Operation) error {
	if err := op.Validate(); err != nil {
		return fmt.Errorf("invalid operation: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ops[op.Name]; exists {
		return fmt.Errorf("%w: %s", ErrOperationAlreadyRegistered, op.Name)
	}
	r.ops[op.Name] = op
	r.byCategory[op.Category] = append(r.byCategory[op.Category], op)
	return nil
}

// MustRegister registers an operation and panics on error. Use for static
// registration at startup.
func (r *Registry) MustRegister(op *Operation) {
	if err := r.Register(op); err != nil {
		panic(fmt.Sprintf("failed to register operation %s: %v", op.Name, err))
	}
}

// Get returns an operation by name, or nil.
func (r *Registry) Get(name string) *Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ops[name]
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ops[name]
	return ok
}

// Names returns all registered operation names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByCategory returns all operations in a category, sorted by name.
func (r *Registry) ByCategory(category Category) []*Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Operation, len(r.byCategory[category]))
	copy(out, r.byCategory[category])
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute validates parameters and runs the named operation.
func (r *Registry) Execute(ctx context.Context, env *Env, name string, params map[string]string) Result {
	op := r.Get(name)
	if op == nil {
		return Result{Operation: name, Err: fmt.Errorf("%w: %s", ErrUnknownOperation, name)}
	}
	for _, key := range op.Required {
		if params[key] == "" {
			return Result{
				Operation: name,
				Err:       invalidParams("missing required parameter %q", key),
			}
		}
	}
	out, err := op.Execute(ctx, env, params)
	return Result{Operation: name, Output: out, Err: err}
}

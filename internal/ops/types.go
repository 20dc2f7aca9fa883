// Package ops defines the agent's executable operations and the registry
// that dispatches them. Each operation takes string parameters produced by
// the command resolver and returns a human-readable result.
package ops

import (
	"context"

	"go.uber.org/zap"

	"aua/internal/config"
	"aua/internal/memory"
)

// Category classifies operations for listing and help output.
type Category string

const (
	CategoryFilesystem Category = "filesystem"
	CategorySystem     Category = "system"
	CategoryVCS        Category = "vcs"
	CategoryNetwork    Category = "network"
	CategoryMemory     Category = "memory"
	CategoryDiagnostic Category = "diagnostic"
)

// Env is the shared execution environment handed to every operation.
// Operations read configuration and query memory through it; they never
// reach into globals.
type Env struct {
	Agent  config.AgentConfig
	HTTP   config.HTTPConfig
	Memory *memory.Service
	Logger *zap.Logger
}

// ExecuteFunc runs one operation. Parameters are flat strings as produced
// by the command resolver.
type ExecuteFunc func(ctx context.Context, env *Env, params map[string]string) (string, error)

// Operation is one executable agent action.
type Operation struct {
	// Name is the unique identifier, e.g. "create_file".
	Name string

	// Description explains what the operation does.
	Description string

	// Category classifies the operation.
	Category Category

	// Required lists parameters that must be present and non-empty.
	Required []string

	// Execute runs the operation.
	Execute ExecuteFunc
}

// Validate checks the operation definition.
func (o *Operation) Validate() error {
	if o.Name == "" {
		return ErrOperationNameEmpty
	}
	if o.Execute == nil {
		return ErrOperationExecuteNil
	}
	return nil
}

// Result wraps an execution outcome with its operation name.
type Result struct {
	Operation string
	Output    string
	Err       error
}

// Success reports whether the operation completed without error.
func (r *Result) Success() bool {
	return r.Err == nil
}

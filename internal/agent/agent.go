// Package agent wires the command resolver, operation registry and memory
// service into the single entry point callers invoke. Each call is
// synchronous: resolve, execute, record, return.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aua/internal/config"
	"aua/internal/memory"
	"aua/internal/ops"
	"aua/internal/resolver"
)

// FreeformHandler receives inputs the resolver could not map to a
// structured operation. Implementations may call a language model; the
// default just returns guidance.
type FreeformHandler interface {
	Handle(ctx context.Context, query string) (string, error)
}

// Agent is the autonomous user agent. A single instance serializes its
// own runs; construct one per isolated context.
type Agent struct {
	resolver *resolver.Resolver
	registry *ops.Registry
	memory   *memory.Service
	env      *ops.Env
	freeform FreeformHandler
	logger   *zap.Logger

	sessionID string
}

// Option configures an Agent.
type Option func(*Agent)

// WithFreeformHandler replaces the default unstructured-query handler.
func WithFreeformHandler(h FreeformHandler) Option {
	return func(a *Agent) { a.freeform = h }
}

// WithResolver replaces the default trigger table.
func WithResolver(r *resolver.Resolver) Option {
	return func(a *Agent) { a.resolver = r }
}

// New builds an agent around an existing memory service. The service
// stays owned by the caller, who closes it when done.
func New(cfg *config.Config, mem *memory.Service, logger *zap.Logger, opts ...Option) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Agent{
		resolver:  resolver.Default(),
		registry:  ops.DefaultRegistry(),
		memory:    mem,
		logger:    logger,
		sessionID: uuid.NewString(),
		env: &ops.Env{
			Agent:  cfg.Agent,
			HTTP:   cfg.HTTP,
			Memory: mem,
			Logger: logger,
		},
	}
	a.freeform = &guidanceHandler{registry: a.registry}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SessionID identifies this agent instance in the interaction log.
func (a *Agent) SessionID() string {
	return a.sessionID
}

// Result is what one run returns. Err is tagged with the operation error
// taxonomy; a run never panics or kills the process over one failure.
type Result struct {
	Operation string
	Output    string
	Err       error
}

// Run resolves free text to an operation and executes it. The interaction
// is recorded after execution regardless of outcome.
func (a *Agent) Run(ctx context.Context, input string) Result {
	res := a.resolver.Resolve(input)
	a.logger.Debug("resolved input",
		zap.String("op", res.Op),
		zap.String("rule", res.Rule),
		zap.Bool("unstructured", res.Unstructured))

	var out Result
	switch {
	case res.Unstructured:
		text, err := a.freeform.Handle(ctx, input)
		out = Result{Operation: resolver.OpUnstructured, Output: text, Err: err}
	case res.ParamErr != nil:
		out = Result{
			Operation: res.Op,
			Err: fmt.Errorf("%w for %s: %v",
				ops.ErrInvalidParameters, res.Op, res.ParamErr),
		}
	default:
		r := a.registry.Execute(ctx, a.env, res.Op, res.Params)
		out = Result{Operation: r.Operation, Output: r.Output, Err: r.Err}
	}

	a.record(input, out, res.Params)
	return out
}

// RunAction executes a structured request directly, bypassing the
// resolver. Used by callers that already know the operation tag.
func (a *Agent) RunAction(ctx context.Context, op string, params map[string]string) Result {
	r := a.registry.Execute(ctx, a.env, op, params)
	out := Result{Operation: r.Operation, Output: r.Output, Err: r.Err}
	a.record(fmt.Sprintf("action:%s", op), out, params)
	return out
}

// Operations lists the registered operation names.
func (a *Agent) Operations() []string {
	return a.registry.Names()
}

func (a *Agent) record(input string, res Result, params map[string]string) {
	outcome := memoryOutcome(res.Err)
	// Partial results carry both a summary and an error; prefer the
	// summary and fall back to the error text.
	response := res.Output
	if res.Err != nil && response == "" {
		response = res.Err.Error()
	}
	a.memory.RecordInteraction(interaction(a.sessionID, input, res.Operation, params, response, outcome))
}

// guidanceHandler is the default free-form handler: it tells the caller
// what the agent can do instead of guessing.
type guidanceHandler struct {
	registry *ops.Registry
}

func (g *guidanceHandler) Handle(ctx context.Context, query string) (string, error) {
	return fmt.Sprintf(
		"I could not map that to a known action. Available operations: %s",
		strings.Join(g.registry.Names(), ", ")), nil
}

var errClassify = []error{
	ops.ErrInvalidParameters,
	ops.ErrPermissionScope,
	ops.ErrTransport,
	ops.ErrAlreadyExists,
	ops.ErrNotFound,
}

// Classify maps an execution error to its taxonomy sentinel, or nil.
func Classify(err error) error {
	for _, sentinel := range errClassify {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}

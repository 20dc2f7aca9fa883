// Package resolver maps free-text instructions to typed operations.
//
// Resolution is ordered pattern matching over a fixed rule table, evaluated
// top to bottom: the first trigger that matches wins, so more specific
// rules must be registered before more general ones. The table is data,
// not code; dispatch never inspects the input beyond the rules.
package resolver

import (
	"regexp"
)

// OpUnstructured is the fallback tag when no rule matches. It is not an
// error; the agent routes it to its free-form handler.
const OpUnstructured = "unstructured_query"

// ExtractFunc pulls parameters out of a matched input. An error means the
// trigger matched but required parameters are missing or malformed; the
// resolver still commits to the rule's operation.
type ExtractFunc func(input string) (map[string]string, error)

// Rule is one entry of the trigger table.
type Rule struct {
	// Name identifies the rule in logs and tests.
	Name string

	// Trigger decides whether this rule claims the input.
	Trigger *regexp.Regexp

	// Op is the operation tag this rule resolves to.
	Op string

	// Extract pulls parameters from the input. Nil means no parameters.
	Extract ExtractFunc
}

// Resolution is the outcome of resolving one input.
type Resolution struct {
	// Op is the resolved operation tag.
	Op string

	// Rule names the table entry that claimed the input; empty on
	// fallback.
	Rule string

	// Params holds extracted parameters.
	Params map[string]string

	// ParamErr is set when the trigger matched but extraction failed.
	// The operation tag is still committed; the executor rejects it.
	ParamErr error

	// Unstructured reports that no rule matched.
	Unstructured bool
}

// Resolver evaluates a rule table in registration order.
type Resolver struct {
	rules []Rule
}

// New creates a resolver over the given table. Rule order is the priority
// order; callers own getting specific-before-general right.
func New(rules []Rule) *Resolver {
	return &Resolver{rules: rules}
}

// Default creates a resolver with the built-in trigger table.
func Default() *Resolver {
	return New(DefaultTable())
}

// Resolve maps input to an operation. It is a pure function of the input
// and the table: same input, same resolution, every call.
func (r *Resolver) Resolve(input string) Resolution {
	for _, rule := range r.rules {
		if !rule.Trigger.MatchString(input) {
			continue
		}
		res := Resolution{Op: rule.Op, Rule: rule.Name}
		if rule.Extract != nil {
			params, err := rule.Extract(input)
			res.Params = params
			res.ParamErr = err
		}
		if res.Params == nil {
			res.Params = map[string]string{}
		}
		return res
	}
	return Resolution{
		Op:           OpUnstructured,
		Params:       map[string]string{"query": input},
		Unstructured: true,
	}
}

// Rules returns the table in evaluation order.
func (r *Resolver) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

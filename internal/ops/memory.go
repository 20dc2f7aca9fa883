package ops

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"aua/internal/memory"
	"aua/internal/store"
)

// WorkspaceOverviewOperation summarizes the current knowledge graph.
func WorkspaceOverviewOperation() *Operation {
	return &Operation{
		Name:        "workspace_overview",
		Description: "Summarize what the workspace graph knows",
		Category:    CategoryMemory,
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			// The overview derives purely from edges and every edge
			// mutation invalidates the query cache, so cached reads
			// are always current.
			ov, err := env.Memory.GetWorkspaceOverview(memory.Cached())
			if err != nil {
				return "", err
			}
			if ov.EdgeCount == 0 {
				return "workspace graph is empty; run a sync or assert edges first", nil
			}
			names := make([]string, 0, len(ov.Entities))
			for name := range ov.Entities {
				names = append(names, name)
			}
			sort.Strings(names)

			var b strings.Builder
			fmt.Fprintf(&b, "%d entities, %d edges\n", len(ov.Entities), ov.EdgeCount)
			for _, name := range names {
				e := ov.Entities[name]
				fmt.Fprintf(&b, "%s: %d out, %d in", e.Name, e.Outgoing, e.Incoming)
				if len(e.Contains) > 0 {
					fmt.Fprintf(&b, ", contains %s", strings.Join(e.Contains, ", "))
				}
				b.WriteByte('\n')
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
	}
}

// ProjectContextOperation reports everything known about one project.
func ProjectContextOperation() *Operation {
	return &Operation{
		Name:        "project_context",
		Description: "Show graph edges and recent interactions for a project",
		Category:    CategoryMemory,
		Required:    []string{"project"},
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			// Context includes interactions, which do not invalidate the
			// cache, so cached reads are opt-in and may lag slightly.
			var opts []memory.QueryOption
			if params["cached"] == "true" {
				opts = append(opts, memory.Cached())
			}
			pc, err := env.Memory.GetProjectContext(params["project"], opts...)
			if err != nil {
				return "", err
			}
			if pc.Empty() {
				return fmt.Sprintf("nothing known about %q yet", pc.Project), nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "project %s\n", pc.Project)
			for _, e := range pc.Edges {
				fmt.Fprintf(&b, "  %s %s %s\n", e.SourceID, e.Relation, e.TargetID)
			}
			if len(pc.Related) > 0 {
				fmt.Fprintf(&b, "related: %s\n", strings.Join(pc.Related, ", "))
			}
			for _, in := range pc.Interactions {
				fmt.Fprintf(&b, "  [%s] %s -> %s\n",
					in.RecordedAt.Format("2006-01-02 15:04"), in.UserInput, in.Outcome)
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
	}
}

// RecentHistoryOperation lists the latest recorded interactions. An
// optional limit parameter bounds the count.
func RecentHistoryOperation() *Operation {
	return &Operation{
		Name:        "recent_history",
		Description: "Show recent agent interactions",
		Category:    CategoryMemory,
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			limit := 10
			if raw := params["limit"]; raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil || n <= 0 {
					return "", invalidParams("limit must be a positive integer, got %q", raw)
				}
				limit = n
			}
			interactions, err := env.Memory.GetRecentInteractions(limit)
			if err != nil {
				return "", err
			}
			if len(interactions) == 0 {
				return "no interactions recorded yet", nil
			}
			var b strings.Builder
			for _, in := range interactions {
				fmt.Fprintf(&b, "[%s] %s: %s (%s)\n",
					in.RecordedAt.Format("2006-01-02 15:04:05"),
					in.Operation, in.UserInput, in.Outcome)
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
	}
}

// SyncGraphOperation triggers a remote graph sync and reports the result.
func SyncGraphOperation() *Operation {
	return &Operation{
		Name:        "sync_graph",
		Description: "Synchronize the local graph with the remote memory server",
		Category:    CategoryMemory,
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			res := env.Memory.SyncRemoteGraph(ctx)
			if res.Status == memory.SyncUnreachable {
				return "", fmt.Errorf("%w: %v", ErrTransport, res.Err)
			}
			summary := fmt.Sprintf("sync %s: %d added, %d updated, %d removed, %d skipped (%s)",
				res.Status, res.Added, res.Updated, res.Removed, res.Skipped,
				res.Elapsed.Round(time.Millisecond))
			if res.Status == memory.SyncPartial {
				return summary, fmt.Errorf("%w: %d records skipped", ErrPartialResult, res.Skipped)
			}
			return summary, nil
		},
	}
}

// StoreKnowledgeOperation files a free-form fact under a key for later
// recall. Storing under an existing key replaces the fact.
func StoreKnowledgeOperation() *Operation {
	return &Operation{
		Name:        "store_knowledge",
		Description: "Store a fact under a key for later recall",
		Category:    CategoryMemory,
		Required:    []string{"key", "value"},
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			category := params["category"]
			if category == "" {
				category = "general"
			}
			if err := env.Memory.StoreKnowledge(params["key"], params["value"], category); err != nil {
				return "", err
			}
			return fmt.Sprintf("remembered %q (%s)", params["key"], category), nil
		},
	}
}

// RetrieveKnowledgeOperation recalls a stored fact by key.
func RetrieveKnowledgeOperation() *Operation {
	return &Operation{
		Name:        "retrieve_knowledge",
		Description: "Recall a stored fact by key",
		Category:    CategoryMemory,
		Required:    []string{"key"},
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			entry, ok, err := env.Memory.RetrieveKnowledge(params["key"])
			if err != nil {
				return "", err
			}
			if !ok {
				return "", fmt.Errorf("%w: no knowledge stored under %q", ErrNotFound, params["key"])
			}
			return entry.Value, nil
		},
	}
}

// AssertEdgeOperation records a locally-asserted graph edge.
func AssertEdgeOperation() *Operation {
	return &Operation{
		Name:        "assert_edge",
		Description: "Assert a local relationship between two entities",
		Category:    CategoryMemory,
		Required:    []string{"source", "target", "relation"},
		Execute: func(ctx context.Context, env *Env, params map[string]string) (string, error) {
			kind := store.RelationKind(params["relation"])
			if !store.ValidRelation(kind) {
				return "", invalidParams("unknown relation kind %q", params["relation"])
			}
			if err := env.Memory.AssertEdge(params["source"], params["target"], kind, nil); err != nil {
				return "", err
			}
			return fmt.Sprintf("asserted %s %s %s", params["source"], kind, params["target"]), nil
		},
	}
}

package memory

import (
	"time"

	"aua/internal/store"
)

// SyncStatus classifies the outcome of a remote graph sync.
type SyncStatus string

const (
	SyncOK          SyncStatus = "ok"
	SyncPartial     SyncStatus = "partial"
	SyncUnreachable SyncStatus = "unreachable"
)

// SyncResult reports what a single sync did. It is a transient value,
// never persisted.
type SyncResult struct {
	Added   int
	Updated int
	Removed int
	Skipped int
	Status  SyncStatus
	Elapsed time.Duration
	// Err carries the transport failure when Status is unreachable.
	Err error
}

// EntitySummary aggregates what the graph knows about one entity.
type EntitySummary struct {
	Name     string
	Outgoing int
	Incoming int
	// Contains lists targets of this entity's "contains" edges, e.g. the
	// projects inside a workspace.
	Contains []string
}

// Overview is the derived workspace aggregate. It is recomputed from the
// current edge set on every call.
type Overview struct {
	Entities   map[string]*EntitySummary
	EdgeCount  int
	ComputedAt time.Time
}

// Context is what the graph and interaction log know about one project.
// An unknown project yields an empty (not nil) Context.
type Context struct {
	Project      string
	Edges        []store.Edge
	Interactions []store.Interaction
	// Related lists sibling projects that share a containing workspace.
	Related []string
}

// Empty reports whether nothing is known about the project.
func (c *Context) Empty() bool {
	return len(c.Edges) == 0 && len(c.Interactions) == 0 && len(c.Related) == 0
}

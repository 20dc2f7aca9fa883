package store

import "time"

// Outcome classifies how an agent invocation ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePartial Outcome = "partial"
)

// Interaction is one record per agent invocation. Records are append-only:
// the store exposes no way to mutate or delete them.
type Interaction struct {
	ID         int64
	RecordedAt time.Time
	// MonoNS is a monotonic ordering key captured at record time. Wall
	// clocks can jump; recency queries sort on this.
	MonoNS     int64
	SessionID  string
	UserInput  string
	Operation  string
	Parameters map[string]string
	Response   string
	Outcome    Outcome
}

// RelationKind is the closed set of edge relations in the workspace graph.
type RelationKind string

const (
	RelationRelatedTo  RelationKind = "related_to"
	RelationContains   RelationKind = "contains"
	RelationDependsOn  RelationKind = "depends_on"
	RelationReferences RelationKind = "references"
)

// ValidRelation reports whether kind is one of the known relation kinds.
func ValidRelation(kind RelationKind) bool {
	switch kind {
	case RelationRelatedTo, RelationContains, RelationDependsOn, RelationReferences:
		return true
	}
	return false
}

// EdgeKey uniquely identifies an edge within a graph snapshot.
type EdgeKey struct {
	SourceID string
	TargetID string
	Relation RelationKind
}

// Edge is a directed relation between two named entities.
// LastSyncedAt is nil for edges asserted locally and never seen from the
// remote; such edges are immune to sync removal.
type Edge struct {
	SourceID     string
	TargetID     string
	Relation     RelationKind
	Metadata     map[string]any
	LastSyncedAt *time.Time
}

// Key returns the dedup key for the edge.
func (e Edge) Key() EdgeKey {
	return EdgeKey{SourceID: e.SourceID, TargetID: e.TargetID, Relation: e.Relation}
}

// LocalOnly reports whether the edge has never been synced from the remote.
func (e Edge) LocalOnly() bool {
	return e.LastSyncedAt == nil
}

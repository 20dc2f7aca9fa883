package store

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(":memory:", nil)
	if err != nil {
		t.Fatalf("Failed to create local store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendInteraction(t *testing.T) {
	s := newTestStore(t)

	in := &Interaction{
		UserInput: "create a file called test.txt",
		Operation: "create_file",
		Parameters: map[string]string{
			"path":    "test.txt",
			"content": "hello world",
		},
		Response: "Created test.txt",
		Outcome:  OutcomeSuccess,
	}
	if err := s.AppendInteraction(in); err != nil {
		t.Fatalf("AppendInteraction failed: %v", err)
	}
	if in.ID == 0 {
		t.Error("Expected ID to be assigned")
	}
	if in.MonoNS == 0 {
		t.Error("Expected MonoNS to be assigned")
	}

	got, err := s.RecentInteractions(10)
	if err != nil {
		t.Fatalf("RecentInteractions failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 interaction, got %d", len(got))
	}
	if diff := cmp.Diff(in.Parameters, got[0].Parameters); diff != "" {
		t.Errorf("Parameters round-trip mismatch (-want +got):\n%s", diff)
	}
	if got[0].Outcome != OutcomeSuccess {
		t.Errorf("Expected success outcome, got %s", got[0].Outcome)
	}
}

func TestRecentInteractions_Ordering(t *testing.T) {
	s := newTestStore(t)

	for i, input := range []string{"first", "second", "third"} {
		in := &Interaction{
			UserInput: input,
			Operation: "unstructured_query",
			MonoNS:    int64(1000 + i),
		}
		if err := s.AppendInteraction(in); err != nil {
			t.Fatalf("AppendInteraction failed: %v", err)
		}
	}

	got, err := s.RecentInteractions(2)
	if err != nil {
		t.Fatalf("RecentInteractions failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 interactions, got %d", len(got))
	}
	if got[0].UserInput != "third" || got[1].UserInput != "second" {
		t.Errorf("Wrong order: %q, %q", got[0].UserInput, got[1].UserInput)
	}
}

func TestRecentInteractions_NonPositiveLimit(t *testing.T) {
	s := newTestStore(t)

	if err := s.AppendInteraction(&Interaction{UserInput: "x", Operation: "sync_graph"}); err != nil {
		t.Fatalf("AppendInteraction failed: %v", err)
	}

	for _, limit := range []int{0, -5} {
		got, err := s.RecentInteractions(limit)
		if err != nil {
			t.Fatalf("RecentInteractions(%d) failed: %v", limit, err)
		}
		if len(got) != 0 {
			t.Errorf("RecentInteractions(%d): expected empty, got %d", limit, len(got))
		}
	}
}

func TestSearchInteractions(t *testing.T) {
	s := newTestStore(t)

	inputs := []string{
		"sync llamalister graph",
		"list processes",
		"what depends on llamalister?",
	}
	for i, input := range inputs {
		if err := s.AppendInteraction(&Interaction{
			UserInput: input,
			Operation: "unstructured_query",
			MonoNS:    int64(100 + i),
		}); err != nil {
			t.Fatalf("AppendInteraction failed: %v", err)
		}
	}

	got, err := s.SearchInteractions("llamalister", 10)
	if err != nil {
		t.Fatalf("SearchInteractions failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(got))
	}
	if got[0].UserInput != "what depends on llamalister?" {
		t.Errorf("Expected most recent match first, got %q", got[0].UserInput)
	}
}

func TestUpsertEdge(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	created, err := s.UpsertEdge(Edge{
		SourceID: "workspace_main",
		TargetID: "project_llamalister",
		Relation: RelationContains,
		Metadata: map[string]any{"purpose": "listing tool"},
	}, now)
	if err != nil {
		t.Fatalf("UpsertEdge failed: %v", err)
	}
	if !created {
		t.Error("Expected first upsert to create")
	}

	// Same key again is an update, not a duplicate.
	created, err = s.UpsertEdge(Edge{
		SourceID: "workspace_main",
		TargetID: "project_llamalister",
		Relation: RelationContains,
	}, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Second UpsertEdge failed: %v", err)
	}
	if created {
		t.Error("Expected second upsert to update")
	}

	n, err := s.CountEdges()
	if err != nil {
		t.Fatalf("CountEdges failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("Expected 1 edge, got %d", n)
	}

	e, err := s.GetEdge(EdgeKey{"workspace_main", "project_llamalister", RelationContains})
	if err != nil {
		t.Fatalf("GetEdge failed: %v", err)
	}
	if e.LastSyncedAt == nil {
		t.Fatal("Expected synced timestamp")
	}
	if !e.LastSyncedAt.After(now) {
		t.Errorf("Expected last_synced_at to advance, got %v", e.LastSyncedAt)
	}
}

func TestUpsertEdge_RejectsInvalid(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.UpsertEdge(Edge{SourceID: "", TargetID: "b", Relation: RelationRelatedTo}, time.Now()); err == nil {
		t.Error("Expected error for empty source")
	}
	if _, err := s.UpsertEdge(Edge{SourceID: "a", TargetID: "b", Relation: "links_to"}, time.Now()); err == nil {
		t.Error("Expected error for unknown relation kind")
	}
}

func TestAssertLocalEdge(t *testing.T) {
	s := newTestStore(t)

	if err := s.AssertLocalEdge("project_a", "project_b", RelationRelatedTo, nil); err != nil {
		t.Fatalf("AssertLocalEdge failed: %v", err)
	}

	e, err := s.GetEdge(EdgeKey{"project_a", "project_b", RelationRelatedTo})
	if err != nil {
		t.Fatalf("GetEdge failed: %v", err)
	}
	if !e.LocalOnly() {
		t.Error("Expected locally asserted edge to have nil last_synced_at")
	}

	// Re-asserting a synced edge must not clear its sync timestamp.
	if _, err := s.UpsertEdge(Edge{
		SourceID: "project_a", TargetID: "project_b", Relation: RelationRelatedTo,
	}, time.Now()); err != nil {
		t.Fatalf("UpsertEdge failed: %v", err)
	}
	if err := s.AssertLocalEdge("project_a", "project_b", RelationRelatedTo,
		map[string]any{"note": "manual"}); err != nil {
		t.Fatalf("AssertLocalEdge after sync failed: %v", err)
	}
	e, err = s.GetEdge(EdgeKey{"project_a", "project_b", RelationRelatedTo})
	if err != nil {
		t.Fatalf("GetEdge failed: %v", err)
	}
	if e.LocalOnly() {
		t.Error("Local assertion cleared a synced timestamp")
	}
	if e.Metadata["note"] != "manual" {
		t.Errorf("Expected metadata update, got %v", e.Metadata)
	}
}

func TestDeleteEdge(t *testing.T) {
	s := newTestStore(t)

	if err := s.AssertLocalEdge("a", "b", RelationDependsOn, nil); err != nil {
		t.Fatalf("AssertLocalEdge failed: %v", err)
	}

	deleted, err := s.DeleteEdge(EdgeKey{"a", "b", RelationDependsOn})
	if err != nil {
		t.Fatalf("DeleteEdge failed: %v", err)
	}
	if !deleted {
		t.Error("Expected edge to be deleted")
	}

	deleted, err = s.DeleteEdge(EdgeKey{"a", "b", RelationDependsOn})
	if err != nil {
		t.Fatalf("Second DeleteEdge failed: %v", err)
	}
	if deleted {
		t.Error("Expected no-op delete for missing edge")
	}

	if _, err := s.GetEdge(EdgeKey{"a", "b", RelationDependsOn}); err != ErrEdgeNotFound {
		t.Errorf("Expected ErrEdgeNotFound, got %v", err)
	}
}

func TestEdgesFor(t *testing.T) {
	s := newTestStore(t)

	s.AssertLocalEdge("workspace", "proj_x", RelationContains, nil)
	s.AssertLocalEdge("proj_x", "lib_y", RelationDependsOn, nil)
	s.AssertLocalEdge("workspace", "proj_z", RelationContains, nil)

	edges, err := s.EdgesFor("proj_x")
	if err != nil {
		t.Fatalf("EdgesFor failed: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("Expected 2 edges for proj_x, got %d", len(edges))
	}

	edges, err = s.EdgesFor("unknown_project")
	if err != nil {
		t.Fatalf("EdgesFor failed: %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("Expected no edges for unknown entity, got %d", len(edges))
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)

	s.AppendInteraction(&Interaction{UserInput: "hi", Operation: "unstructured_query"})
	s.AssertLocalEdge("a", "b", RelationRelatedTo, nil)

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats["interactions"] != 1 {
		t.Errorf("Expected 1 interaction, got %d", stats["interactions"])
	}
	if stats["graph_edges"] != 1 {
		t.Errorf("Expected 1 edge, got %d", stats["graph_edges"])
	}
}

func TestKnowledgeRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.PutKnowledge("deploy-cmd", "make deploy", "ops"); err != nil {
		t.Fatalf("PutKnowledge failed: %v", err)
	}

	entry, ok, err := s.GetKnowledge("deploy-cmd")
	if err != nil {
		t.Fatalf("GetKnowledge failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected key to exist")
	}
	if entry.Value != "make deploy" || entry.Category != "ops" {
		t.Errorf("Got %+v, want value %q in category %q", entry, "make deploy", "ops")
	}
	if entry.UpdatedAt.IsZero() {
		t.Error("Expected UpdatedAt to be set")
	}
}

func TestKnowledge_PutReplaces(t *testing.T) {
	s := newTestStore(t)

	if err := s.PutKnowledge("editor", "vim", ""); err != nil {
		t.Fatalf("PutKnowledge failed: %v", err)
	}
	if err := s.PutKnowledge("editor", "helix", "tools"); err != nil {
		t.Fatalf("PutKnowledge replace failed: %v", err)
	}

	entry, ok, err := s.GetKnowledge("editor")
	if err != nil || !ok {
		t.Fatalf("GetKnowledge: ok=%v err=%v", ok, err)
	}
	if entry.Value != "helix" || entry.Category != "tools" {
		t.Errorf("Got %+v after replace", entry)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats["knowledge"] != 1 {
		t.Errorf("Expected 1 knowledge row after replace, got %d", stats["knowledge"])
	}
}

func TestKnowledge_MissingKey(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.GetKnowledge("ghost")
	if err != nil {
		t.Fatalf("GetKnowledge failed: %v", err)
	}
	if ok {
		t.Error("Expected missing key to report ok=false")
	}

	if err := s.PutKnowledge("", "value", ""); err == nil {
		t.Error("Expected empty key to be rejected")
	}
}

func TestKnowledgeByCategory(t *testing.T) {
	s := newTestStore(t)

	s.PutKnowledge("b-key", "2", "ops")
	s.PutKnowledge("a-key", "1", "ops")
	s.PutKnowledge("other", "3", "general")

	entries, err := s.KnowledgeByCategory("ops")
	if err != nil {
		t.Fatalf("KnowledgeByCategory failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Key != "a-key" || entries[1].Key != "b-key" {
		t.Errorf("Expected key order [a-key b-key], got [%s %s]", entries[0].Key, entries[1].Key)
	}
}

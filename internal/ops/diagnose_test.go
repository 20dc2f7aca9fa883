package ops

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aua/internal/config"
	"aua/internal/memory"
	"aua/internal/store"
)

func memoryEnv(t *testing.T, remoteURL string) *Env {
	t.Helper()
	svc, err := memory.NewService(config.MemoryConfig{
		DatabasePath: filepath.Join(t.TempDir(), "aua.db"),
		RemoteURL:    remoteURL,
		SyncTimeout:  5 * time.Second,
		RecentLimit:  10,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	env := newFSEnv(t)
	env.Memory = svc
	return env
}

func TestSelfDiagnoseReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	env := memoryEnv(t, srv.URL)
	out, err := run(t, SelfDiagnoseOperation(), env, nil)
	if err != nil {
		t.Fatalf("self_diagnose: %v", err)
	}
	if !strings.Contains(out, "reachable") || strings.Contains(out, "unreachable") {
		t.Fatalf("expected reachable report, got %q", out)
	}
	if !strings.Contains(out, "local store:") {
		t.Fatalf("report %q missing store health", out)
	}
}

func TestSelfDiagnoseOverrideDoesNotMutateConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	env := memoryEnv(t, srv.URL)
	configured := env.Memory.RemoteURL()

	out, err := run(t, SelfDiagnoseOperation(), env, map[string]string{
		"remote_memory_url": "bogus://nowhere",
	})
	if err != nil {
		t.Fatalf("self_diagnose: %v", err)
	}
	if !strings.Contains(out, "unreachable") {
		t.Fatalf("expected unreachable report for override, got %q", out)
	}
	if env.Memory.RemoteURL() != configured {
		t.Fatal("probe override must not change configured endpoint")
	}
}

func TestWorkspaceOverviewAndProjectContextOps(t *testing.T) {
	env := memoryEnv(t, "")
	if err := env.Memory.AssertEdge("workspace", "alpha", store.RelationContains, nil); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, WorkspaceOverviewOperation(), env, nil)
	if err != nil {
		t.Fatalf("workspace_overview: %v", err)
	}
	if !strings.Contains(out, "contains alpha") {
		t.Fatalf("overview %q missing containment", out)
	}

	out, err = run(t, ProjectContextOperation(), env, map[string]string{"project": "alpha"})
	if err != nil {
		t.Fatalf("project_context: %v", err)
	}
	if !strings.Contains(out, "workspace contains alpha") {
		t.Fatalf("context %q missing edge", out)
	}

	out, err = run(t, ProjectContextOperation(), env, map[string]string{"project": "ghost"})
	if err != nil {
		t.Fatalf("project_context: %v", err)
	}
	if !strings.Contains(out, "nothing known") {
		t.Fatalf("unknown project should soft-fail, got %q", out)
	}
}

func TestRecentHistoryOpValidation(t *testing.T) {
	env := memoryEnv(t, "")
	if _, err := run(t, RecentHistoryOperation(), env, map[string]string{"limit": "zero"}); err == nil {
		t.Fatal("non-numeric limit must fail")
	}

	out, err := run(t, RecentHistoryOperation(), env, nil)
	if err != nil {
		t.Fatalf("recent_history: %v", err)
	}
	if !strings.Contains(out, "no interactions") {
		t.Fatalf("empty history message missing, got %q", out)
	}
}

func TestAssertEdgeOpValidatesRelation(t *testing.T) {
	env := memoryEnv(t, "")
	if _, err := run(t, AssertEdgeOperation(), env, map[string]string{
		"source": "a", "target": "b", "relation": "owns",
	}); err == nil {
		t.Fatal("unknown relation kind must fail")
	}
	if _, err := run(t, AssertEdgeOperation(), env, map[string]string{
		"source": "a", "target": "b", "relation": "depends_on",
	}); err != nil {
		t.Fatalf("assert_edge: %v", err)
	}
}

// Package memory implements the AUA memory service: it owns the local
// store, records every agent interaction, answers workspace/project context
// queries, and reconciles the local graph against the remote endpoint.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"aua/internal/config"
	"aua/internal/graph"
	"aua/internal/store"
)

// Service unifies the local store and the remote graph client. It is the
// only writer of interaction and edge records; the client only ever returns
// edge lists for the service to reconcile.
type Service struct {
	store  *store.LocalStore
	client *graph.Client
	logger *zap.Logger

	// sync serialization: at most one sync in flight, concurrent callers
	// share the result.
	sf singleflight.Group

	mu          sync.RWMutex
	remoteURL   string
	snapshot    []store.Edge // last successfully fetched remote set
	recentLimit int
	syncTimeout time.Duration

	cache    *ristretto.Cache
	cacheTTL time.Duration
}

// NewService creates the memory service from configuration. The service
// takes ownership of its store; callers must not write to it directly.
func NewService(cfg config.MemoryConfig, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	st, err := store.NewLocalStore(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	client := graph.NewClient(logger, graph.WithRetries(cfg.MaxRetries))

	svc := &Service{
		store:       st,
		client:      client,
		logger:      logger,
		recentLimit: cfg.RecentLimit,
		syncTimeout: cfg.SyncTimeout,
		cacheTTL:    cfg.CacheTTL,
	}
	svc.remoteURL = cfg.RemoteURL
	if svc.remoteURL == "" {
		svc.remoteURL = cfg.FallbackRemoteURL
	}
	if svc.recentLimit <= 0 {
		svc.recentLimit = 10
	}
	if svc.syncTimeout <= 0 {
		svc.syncTimeout = 30 * time.Second
	}
	if svc.cacheTTL <= 0 {
		svc.cacheTTL = time.Minute
	}

	// Query cache is best-effort; the service works without it.
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1 << 12,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		logger.Warn("query cache disabled", zap.Error(err))
	} else {
		svc.cache = cache
	}

	return svc, nil
}

// SetRemoteURL repoints the sync endpoint. Used by config reload; does not
// trigger a sync.
func (s *Service) SetRemoteURL(url string) {
	s.mu.Lock()
	s.remoteURL = url
	s.mu.Unlock()
	s.logger.Info("remote memory endpoint updated", zap.String("url", url))
}

// RemoteURL returns the currently configured sync endpoint.
func (s *Service) RemoteURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remoteURL
}

// RecordInteraction appends one interaction to the local log. It never
// fails from the caller's perspective: a persistence error is logged and
// swallowed so memory durability can never mask an operation's result.
func (s *Service) RecordInteraction(in store.Interaction) {
	if err := s.store.AppendInteraction(&in); err != nil {
		s.logger.Warn("failed to record interaction",
			zap.String("operation", in.Operation), zap.Error(err))
	}
}

// GetRecentInteractions returns up to limit interactions, most recent
// first. A non-positive limit yields an empty slice.
func (s *Service) GetRecentInteractions(limit int) ([]store.Interaction, error) {
	return s.store.RecentInteractions(limit)
}

// AssertEdge records a locally-asserted relationship. Local edges carry no
// sync timestamp and are never removed by reconciliation.
func (s *Service) AssertEdge(source, target string, kind store.RelationKind, metadata map[string]any) error {
	if err := s.store.AssertLocalEdge(source, target, kind, metadata); err != nil {
		return err
	}
	s.invalidateQueries()
	return nil
}

// StoreKnowledge persists a free-form fact under a unique key. Facts are
// purely local: the sync lifecycle never touches them.
func (s *Service) StoreKnowledge(key, value, category string) error {
	return s.store.PutKnowledge(key, value, category)
}

// RetrieveKnowledge returns the fact stored under key. The boolean
// reports whether the key exists.
func (s *Service) RetrieveKnowledge(key string) (store.KnowledgeEntry, bool, error) {
	return s.store.GetKnowledge(key)
}

// QueryOption adjusts context/overview queries.
type QueryOption func(*queryOptions)

type queryOptions struct {
	cached bool
}

// Cached allows the service to answer from (and populate) its short-lived
// query cache. Without this option every query recomputes from the store.
func Cached() QueryOption {
	return func(o *queryOptions) { o.cached = true }
}

// GetWorkspaceOverview aggregates the current edge set by entity. Pure
// function of current state; recomputed on every call unless the caller
// explicitly opts into caching.
func (s *Service) GetWorkspaceOverview(opts ...QueryOption) (*Overview, error) {
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}
	const cacheKey = "overview"

	if o.cached && s.cache != nil {
		if v, ok := s.cache.Get(cacheKey); ok {
			if ov, ok := v.(*Overview); ok {
				return ov, nil
			}
		}
	}

	edges, err := s.store.AllEdges()
	if err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}

	ov := &Overview{
		Entities:   make(map[string]*EntitySummary),
		EdgeCount:  len(edges),
		ComputedAt: time.Now(),
	}
	summary := func(name string) *EntitySummary {
		if e, ok := ov.Entities[name]; ok {
			return e
		}
		e := &EntitySummary{Name: name}
		ov.Entities[name] = e
		return e
	}
	for _, e := range edges {
		src := summary(e.SourceID)
		src.Outgoing++
		if e.Relation == store.RelationContains {
			src.Contains = append(src.Contains, e.TargetID)
		}
		summary(e.TargetID).Incoming++
	}
	for _, e := range ov.Entities {
		sort.Strings(e.Contains)
	}

	if o.cached && s.cache != nil {
		s.cache.SetWithTTL(cacheKey, ov, 1, s.cacheTTL)
	}
	return ov, nil
}

// GetProjectContext returns edges touching the named project plus the most
// recent interactions mentioning it. An unknown name yields an empty
// Context, not an error: this is a query, not a validation gate.
func (s *Service) GetProjectContext(project string, opts ...QueryOption) (*Context, error) {
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}
	cacheKey := "context:" + project

	if o.cached && s.cache != nil {
		if v, ok := s.cache.Get(cacheKey); ok {
			if c, ok := v.(*Context); ok {
				return c, nil
			}
		}
	}

	ctx := &Context{Project: project}

	edges, err := s.store.EdgesFor(project)
	if err != nil {
		return nil, fmt.Errorf("failed to load project edges: %w", err)
	}
	ctx.Edges = edges
	ctx.Related = s.relatedProjects(project, edges)

	interactions, err := s.store.SearchInteractions(project, s.recentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search interactions: %w", err)
	}
	ctx.Interactions = interactions

	if o.cached && s.cache != nil {
		s.cache.SetWithTTL(cacheKey, ctx, 1, s.cacheTTL)
	}
	return ctx, nil
}

// relatedProjects finds siblings: other targets contained by any workspace
// that contains this project.
func (s *Service) relatedProjects(project string, edges []store.Edge) []string {
	var parents []string
	for _, e := range edges {
		if e.Relation == store.RelationContains && e.TargetID == project {
			parents = append(parents, e.SourceID)
		}
	}

	seen := map[string]bool{project: true}
	var related []string
	for _, parent := range parents {
		parentEdges, err := s.store.EdgesFor(parent)
		if err != nil {
			continue
		}
		for _, e := range parentEdges {
			if e.Relation == store.RelationContains && e.SourceID == parent && !seen[e.TargetID] {
				seen[e.TargetID] = true
				related = append(related, e.TargetID)
			}
		}
	}
	sort.Strings(related)
	return related
}

// GetRemoteGraphEdges returns the last successfully fetched remote
// snapshot. Before any successful sync it is empty; reading it never
// triggers a network call.
func (s *Service) GetRemoteGraphEdges() []store.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Edge, len(s.snapshot))
	copy(out, s.snapshot)
	return out
}

// Stats returns local store row counts.
func (s *Service) Stats() (map[string]int64, error) {
	return s.store.Stats()
}

// StorePath returns the SQLite file backing the service.
func (s *Service) StorePath() string {
	return s.store.Path()
}

// ProbeRemote checks reachability of endpoint (or the configured endpoint
// when empty) and returns the round-trip latency. Read-only: it never
// mutates the stored configuration or the graph. The probe is bounded by
// the sync timeout so a silent endpoint cannot hang the caller.
func (s *Service) ProbeRemote(ctx context.Context, endpoint string) (time.Duration, error) {
	if endpoint == "" {
		endpoint = s.RemoteURL()
	}
	if endpoint == "" {
		return 0, fmt.Errorf("no remote memory URL configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.syncTimeout)
	defer cancel()
	return s.client.Probe(ctx, endpoint)
}

func (s *Service) invalidateQueries() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

// Close releases the store and cache.
func (s *Service) Close() error {
	if s.cache != nil {
		s.cache.Close()
	}
	return s.store.Close()
}

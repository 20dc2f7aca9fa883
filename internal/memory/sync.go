package memory

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"go.uber.org/zap"

	"aua/internal/graph"
	"aua/internal/store"
)

// SyncRemoteGraph fetches the full remote edge set and reconciles the
// local graph against it:
//
//   - every valid remote edge is upserted with last_synced_at set to the
//     sync start time
//   - local edges that were previously synced (non-null last_synced_at
//     predating this sync) and are absent from the fetch are removed
//   - locally-asserted edges (null last_synced_at) are never touched
//
// Concurrent callers share a single in-flight sync. When the endpoint is
// unreachable the local graph is left untouched and the previous snapshot
// survives.
func (s *Service) SyncRemoteGraph(ctx context.Context) SyncResult {
	v, _, _ := s.sf.Do("sync", func() (any, error) {
		return s.syncOnce(ctx), nil
	})
	return v.(SyncResult)
}

func (s *Service) syncOnce(ctx context.Context) SyncResult {
	started := time.Now()
	endpoint := s.RemoteURL()
	if endpoint == "" {
		return SyncResult{
			Status:  SyncUnreachable,
			Elapsed: time.Since(started),
			Err:     errors.New("no remote memory URL configured"),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.syncTimeout)
	defer cancel()

	raw, skipped, err := s.client.FetchEdges(ctx, endpoint)
	if err != nil {
		s.logger.Warn("remote graph unreachable",
			zap.String("endpoint", endpoint), zap.Error(err))
		return SyncResult{
			Skipped: skipped,
			Status:  SyncUnreachable,
			Elapsed: time.Since(started),
			Err:     err,
		}
	}

	res := s.reconcile(raw, started)
	res.Skipped += skipped
	res.Elapsed = time.Since(started)
	if res.Skipped > 0 && res.Status == SyncOK {
		res.Status = SyncPartial
	}

	s.invalidateQueries()
	s.logger.Info("remote graph synced",
		zap.String("endpoint", endpoint),
		zap.Int("added", res.Added),
		zap.Int("updated", res.Updated),
		zap.Int("removed", res.Removed),
		zap.Int("skipped", res.Skipped),
		zap.String("status", string(res.Status)))
	return res
}

// reconcile applies one fetched remote set to the store and refreshes the
// in-memory snapshot. The sync start time stamps every upsert so removal
// can distinguish edges synced in earlier rounds.
func (s *Service) reconcile(raw []graph.RawEdge, syncedAt time.Time) SyncResult {
	res := SyncResult{Status: SyncOK}

	remote := make(map[store.EdgeKey]graph.RawEdge, len(raw))
	for _, r := range raw {
		kind := store.RelationKind(r.Relation)
		if !store.ValidRelation(kind) {
			res.Skipped++
			continue
		}
		key := store.EdgeKey{SourceID: r.Source, TargetID: r.Target, Relation: kind}
		remote[key] = r
	}

	// Load the pre-sync state once; removal decisions are made against it,
	// not against the table as upserts mutate it.
	existing, err := s.store.AllEdges()
	if err != nil {
		res.Status = SyncPartial
		res.Err = err
		return res
	}
	before := make(map[store.EdgeKey]store.Edge, len(existing))
	for _, e := range existing {
		before[e.Key()] = e
	}

	snapshot := make([]store.Edge, 0, len(remote))
	for key, r := range remote {
		edge := store.Edge{
			SourceID: key.SourceID,
			TargetID: key.TargetID,
			Relation: key.Relation,
			Metadata: r.Metadata,
		}
		created, err := s.store.UpsertEdge(edge, syncedAt)
		if err != nil {
			s.logger.Warn("failed to upsert remote edge",
				zap.String("source", key.SourceID),
				zap.String("target", key.TargetID),
				zap.Error(err))
			res.Skipped++
			continue
		}
		if created {
			res.Added++
		} else if prev, ok := before[key]; ok && !metadataEqual(prev.Metadata, r.Metadata) {
			res.Updated++
		}
		t := syncedAt
		edge.LastSyncedAt = &t
		snapshot = append(snapshot, edge)
	}

	for key, e := range before {
		if _, present := remote[key]; present {
			continue
		}
		if e.LocalOnly() || !e.LastSyncedAt.Before(syncedAt) {
			continue
		}
		removed, err := s.store.DeleteEdge(key)
		if err != nil {
			s.logger.Warn("failed to remove stale edge",
				zap.String("source", key.SourceID),
				zap.String("target", key.TargetID),
				zap.Error(err))
			res.Skipped++
			continue
		}
		if removed {
			res.Removed++
		}
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()
	return res
}

// metadataEqual compares metadata through a JSON round-trip so that
// values read back from the store (json.Unmarshal output) compare equal
// to freshly fetched ones.
func metadataEqual(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	var av, bv any
	if json.Unmarshal(ab, &av) != nil || json.Unmarshal(bb, &bv) != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}

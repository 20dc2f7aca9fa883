package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrEdgeNotFound is returned by lookups for a key with no stored edge.
var ErrEdgeNotFound = errors.New("graph edge not found")

// UpsertEdge inserts or updates an edge by its (source, target, relation)
// key, recording syncedAt as the edge's last_synced_at. Reports whether the
// edge was created. The read-modify-write runs in one transaction so
// overlapping upserts of the same key cannot lose updates.
func (s *LocalStore) UpsertEdge(e Edge, syncedAt time.Time) (created bool, err error) {
	if err := validateEdge(e); err != nil {
		return false, err
	}

	metaJSON, err := marshalMetadata(e.Metadata)
	if err != nil {
		return false, err
	}
	ts := syncedAt.UTC().Format(time.RFC3339Nano)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow(
		`SELECT id FROM graph_edges WHERE source_id = ? AND target_id = ? AND relation_kind = ?`,
		e.SourceID, e.TargetID, string(e.Relation),
	).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.Exec(
			`INSERT INTO graph_edges (source_id, target_id, relation_kind, metadata, last_synced_at)
			 VALUES (?, ?, ?, ?, ?)`,
			e.SourceID, e.TargetID, string(e.Relation), metaJSON, ts,
		); err != nil {
			return false, fmt.Errorf("failed to insert edge: %w", err)
		}
		created = true
	case err != nil:
		return false, fmt.Errorf("failed to look up edge: %w", err)
	default:
		if _, err := tx.Exec(
			`UPDATE graph_edges SET metadata = ?, last_synced_at = ? WHERE id = ?`,
			metaJSON, ts, id,
		); err != nil {
			return false, fmt.Errorf("failed to update edge: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit upsert: %w", err)
	}

	s.logger.Debug("edge upserted",
		zap.String("source", e.SourceID),
		zap.String("relation", string(e.Relation)),
		zap.String("target", e.TargetID),
		zap.Bool("created", created))
	return created, nil
}

// AssertLocalEdge stores a locally-asserted relationship. A new edge is
// written with a NULL last_synced_at, which shields it from sync removal.
// If the key already exists only the metadata is replaced; a synced
// timestamp is never cleared by a local assertion.
func (s *LocalStore) AssertLocalEdge(source, target string, kind RelationKind, metadata map[string]any) error {
	e := Edge{SourceID: source, TargetID: target, Relation: kind, Metadata: metadata}
	if err := validateEdge(e); err != nil {
		return err
	}
	metaJSON, err := marshalMetadata(metadata)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin assert: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow(
		`SELECT id FROM graph_edges WHERE source_id = ? AND target_id = ? AND relation_kind = ?`,
		source, target, string(kind),
	).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.Exec(
			`INSERT INTO graph_edges (source_id, target_id, relation_kind, metadata, last_synced_at)
			 VALUES (?, ?, ?, ?, NULL)`,
			source, target, string(kind), metaJSON,
		); err != nil {
			return fmt.Errorf("failed to insert local edge: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to look up edge: %w", err)
	default:
		if _, err := tx.Exec(
			`UPDATE graph_edges SET metadata = ? WHERE id = ?`, metaJSON, id,
		); err != nil {
			return fmt.Errorf("failed to update local edge: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteEdge removes the edge with the given key. Reports whether a row was
// actually deleted.
func (s *LocalStore) DeleteEdge(key EdgeKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`DELETE FROM graph_edges WHERE source_id = ? AND target_id = ? AND relation_kind = ?`,
		key.SourceID, key.TargetID, string(key.Relation),
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete edge: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetEdge returns the edge with the given key, or ErrEdgeNotFound.
func (s *LocalStore) GetEdge(key EdgeKey) (*Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		`SELECT source_id, target_id, relation_kind, metadata, last_synced_at
		 FROM graph_edges WHERE source_id = ? AND target_id = ? AND relation_kind = ?`,
		key.SourceID, key.TargetID, string(key.Relation),
	)
	e, err := scanEdgeRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEdgeNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// AllEdges returns every stored edge.
func (s *LocalStore) AllEdges() ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryEdgesLocked(
		`SELECT source_id, target_id, relation_kind, metadata, last_synced_at FROM graph_edges`)
}

// EdgesFor returns edges where entity appears as source or target.
func (s *LocalStore) EdgesFor(entity string) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryEdgesLocked(
		`SELECT source_id, target_id, relation_kind, metadata, last_synced_at
		 FROM graph_edges WHERE source_id = ? OR target_id = ?`, entity, entity)
}

// CountEdges returns the number of stored edges.
func (s *LocalStore) CountEdges() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM graph_edges`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count edges: %w", err)
	}
	return n, nil
}

// queryEdgesLocked assumes the caller holds at least s.mu.RLock().
func (s *LocalStore) queryEdgesLocked(query string, args ...any) ([]Edge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("edge query failed: %w", err)
	}
	defer rows.Close()

	edges := []Edge{}
	for rows.Next() {
		e, err := scanEdgeRow(rows.Scan)
		if err != nil {
			s.logger.Warn("edge row scan failed", zap.Error(err))
			continue
		}
		edges = append(edges, *e)
	}
	return edges, rows.Err()
}

func scanEdgeRow(scan func(...any) error) (*Edge, error) {
	var (
		e        Edge
		relation string
		meta     sql.NullString
		syncedAt sql.NullString
	)
	if err := scan(&e.SourceID, &e.TargetID, &relation, &meta, &syncedAt); err != nil {
		return nil, err
	}
	e.Relation = RelationKind(relation)
	if meta.Valid && meta.String != "" {
		// One corrupted metadata blob should not hide the edge itself.
		_ = json.Unmarshal([]byte(meta.String), &e.Metadata)
	}
	if syncedAt.Valid && syncedAt.String != "" {
		if ts, err := time.Parse(time.RFC3339Nano, syncedAt.String); err == nil {
			e.LastSyncedAt = &ts
		}
	}
	return &e, nil
}

func validateEdge(e Edge) error {
	if e.SourceID == "" || e.TargetID == "" || e.Relation == "" {
		return fmt.Errorf("invalid graph edge: source/target/relation must be non-empty")
	}
	if !ValidRelation(e.Relation) {
		return fmt.Errorf("invalid relation kind %q", e.Relation)
	}
	return nil
}

func marshalMetadata(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal edge metadata: %w", err)
	}
	return string(b), nil
}

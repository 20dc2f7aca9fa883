package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// KnowledgeEntry is one learned fact: a free-form value filed under a
// unique key. Unlike interactions, facts are mutable and a later Put
// replaces the earlier value.
type KnowledgeEntry struct {
	Key       string
	Value     string
	Category  string
	UpdatedAt time.Time
}

// PutKnowledge stores value under key, replacing any previous entry.
// An empty category defaults to "general".
func (s *LocalStore) PutKnowledge(key, value, category string) error {
	if key == "" {
		return fmt.Errorf("knowledge key must not be empty")
	}
	if category == "" {
		category = "general"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO knowledge (key, value, category, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = excluded.value,
		   category = excluded.category,
		   updated_at = excluded.updated_at`,
		key, value, category, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to store knowledge %q: %w", key, err)
	}

	s.logger.Debug("knowledge stored",
		zap.String("key", key), zap.String("category", category))
	return nil
}

// GetKnowledge returns the entry stored under key. The boolean reports
// whether the key exists.
func (s *LocalStore) GetKnowledge(key string) (KnowledgeEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		e       KnowledgeEntry
		updated string
	)
	err := s.db.QueryRow(
		`SELECT key, value, category, updated_at FROM knowledge WHERE key = ?`, key).
		Scan(&e.Key, &e.Value, &e.Category, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return KnowledgeEntry{}, false, nil
	}
	if err != nil {
		return KnowledgeEntry{}, false, fmt.Errorf("failed to retrieve knowledge %q: %w", key, err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		e.UpdatedAt = ts
	}
	return e, true, nil
}

// KnowledgeByCategory lists the entries in one category, ordered by key.
func (s *LocalStore) KnowledgeByCategory(category string) ([]KnowledgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT key, value, category, updated_at FROM knowledge
		 WHERE category = ? ORDER BY key`, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge: %w", err)
	}
	defer rows.Close()

	var entries []KnowledgeEntry
	for rows.Next() {
		var (
			e       KnowledgeEntry
			updated string
		)
		if err := rows.Scan(&e.Key, &e.Value, &e.Category, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			e.UpdatedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

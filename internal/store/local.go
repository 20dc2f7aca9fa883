// Package store provides the durable local persistence layer: an append-only
// interaction log and the cached workspace graph edges, both in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// LocalStore persists interactions and graph edges in a single SQLite file.
// Safe for concurrent use; writes are serialized by an internal mutex on top
// of a single database connection.
type LocalStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	logger *zap.Logger
}

// NewLocalStore initializes the SQLite database at the given path.
// Use ":memory:" for an ephemeral store in tests.
func NewLocalStore(path string, logger *zap.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Debug("failed to set sqlite busy_timeout", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logger.Debug("failed to set sqlite journal_mode=WAL", zap.Error(err))
	}
	// synchronous=NORMAL is safe under WAL and much faster than FULL.
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logger.Debug("failed to set sqlite synchronous=NORMAL", zap.Error(err))
	}

	s := &LocalStore{db: db, dbPath: path, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("local store initialized", zap.String("path", path))
	return s, nil
}

// initialize creates the required tables.
func (s *LocalStore) initialize() error {
	interactionsTable := `
	CREATE TABLE IF NOT EXISTS interactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recorded_at TEXT NOT NULL,
		mono_ns INTEGER NOT NULL,
		session_id TEXT,
		user_input TEXT,
		operation TEXT NOT NULL,
		parameters TEXT,
		response TEXT,
		outcome TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_interactions_mono ON interactions(mono_ns);
	CREATE INDEX IF NOT EXISTS idx_interactions_session ON interactions(session_id);
	`

	edgesTable := `
	CREATE TABLE IF NOT EXISTS graph_edges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		relation_kind TEXT NOT NULL,
		metadata TEXT,
		last_synced_at TEXT,
		UNIQUE(source_id, target_id, relation_kind)
	);
	CREATE INDEX IF NOT EXISTS idx_edges_source ON graph_edges(source_id);
	CREATE INDEX IF NOT EXISTS idx_edges_target ON graph_edges(target_id);
	CREATE INDEX IF NOT EXISTS idx_edges_relation ON graph_edges(relation_kind);
	`

	knowledgeTable := `
	CREATE TABLE IF NOT EXISTS knowledge (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		category TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_knowledge_category ON knowledge(category);
	`

	for _, table := range []string{interactionsTable, edgesTable, knowledgeTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Path returns the database file path.
func (s *LocalStore) Path() string {
	return s.dbPath
}

// Stats returns row counts per table.
func (s *LocalStore) Stats() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64)
	for _, table := range []string{"interactions", "graph_edges", "knowledge"} {
		var count int64
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = count
	}
	return stats, nil
}

// Close closes the database connection.
func (s *LocalStore) Close() error {
	s.logger.Debug("closing local store")
	return s.db.Close()
}

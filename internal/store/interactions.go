package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// AppendInteraction inserts a new interaction record. The record is
// immutable once written; the store intentionally exposes no update or
// delete path for interactions.
func (s *LocalStore) AppendInteraction(in *Interaction) error {
	if in.Operation == "" {
		return fmt.Errorf("interaction operation must not be empty")
	}
	if in.RecordedAt.IsZero() {
		in.RecordedAt = time.Now()
	}
	if in.MonoNS == 0 {
		in.MonoNS = monotonicNow()
	}
	if in.Outcome == "" {
		in.Outcome = OutcomeSuccess
	}

	var paramsJSON []byte
	if len(in.Parameters) > 0 {
		var err error
		paramsJSON, err = json.Marshal(in.Parameters)
		if err != nil {
			return fmt.Errorf("failed to marshal interaction parameters: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO interactions
		 (recorded_at, mono_ns, session_id, user_input, operation, parameters, response, outcome)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.RecordedAt.UTC().Format(time.RFC3339Nano),
		in.MonoNS,
		in.SessionID,
		in.UserInput,
		in.Operation,
		nullableString(paramsJSON),
		in.Response,
		string(in.Outcome),
	)
	if err != nil {
		return fmt.Errorf("failed to append interaction: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		in.ID = id
	}

	s.logger.Debug("interaction appended",
		zap.String("operation", in.Operation),
		zap.String("outcome", string(in.Outcome)))
	return nil
}

// RecentInteractions returns up to limit interactions, most recent first.
// A non-positive limit yields an empty slice.
func (s *LocalStore) RecentInteractions(limit int) ([]Interaction, error) {
	if limit <= 0 {
		return []Interaction{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, recorded_at, mono_ns, session_id, user_input, operation, parameters, response, outcome
		 FROM interactions ORDER BY mono_ns DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	return s.scanInteractions(rows)
}

// SearchInteractions returns up to limit interactions whose user_input
// contains substr, most recent first.
func (s *LocalStore) SearchInteractions(substr string, limit int) ([]Interaction, error) {
	if limit <= 0 || substr == "" {
		return []Interaction{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, recorded_at, mono_ns, session_id, user_input, operation, parameters, response, outcome
		 FROM interactions
		 WHERE user_input LIKE '%' || ? || '%'
		 ORDER BY mono_ns DESC, id DESC LIMIT ?`, substr, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search interactions: %w", err)
	}
	defer rows.Close()

	return s.scanInteractions(rows)
}

func (s *LocalStore) scanInteractions(rows *sql.Rows) ([]Interaction, error) {
	out := []Interaction{}
	for rows.Next() {
		var (
			in         Interaction
			recordedAt string
			sessionID  sql.NullString
			params     sql.NullString
			outcome    string
		)
		if err := rows.Scan(&in.ID, &recordedAt, &in.MonoNS, &sessionID,
			&in.UserInput, &in.Operation, &params, &in.Response, &outcome); err != nil {
			s.logger.Warn("interaction row scan failed", zap.Error(err))
			continue
		}
		if ts, err := time.Parse(time.RFC3339Nano, recordedAt); err == nil {
			in.RecordedAt = ts
		}
		in.SessionID = sessionID.String
		in.Outcome = Outcome(outcome)
		if params.Valid && params.String != "" {
			if err := json.Unmarshal([]byte(params.String), &in.Parameters); err != nil {
				s.logger.Warn("interaction parameters unmarshal failed",
					zap.Int64("id", in.ID), zap.Error(err))
			}
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

var monoBase = time.Now()

// monotonicNow returns nanoseconds since process start measured on the
// monotonic clock, offset by the wall time at start so values remain
// comparable across restarts.
func monotonicNow() int64 {
	return monoBase.UnixNano() + int64(time.Since(monoBase))
}
